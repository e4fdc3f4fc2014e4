package main

import (
	"strconv"

	"github.com/spf13/cobra"
)

var (
	linkNumber int
	linkRemove bool
)

var linkCmd = &cobra.Command{
	Use:   "link <exam-id> <question-id>",
	Short: "Link or unlink a question on an exam",
	Long: `Links a question into an exam at the given ordinal; without --number
the question is appended after the exam's current highest ordinal. With
--remove the link is deleted instead.`,
	Args: cobra.ExactArgs(2),
	RunE: runLink,
}

func init() {
	linkCmd.Flags().IntVar(&linkNumber, "number", 0, "Ordinal position on the exam (0 appends)")
	linkCmd.Flags().BoolVar(&linkRemove, "remove", false, "Remove the link instead of adding it")
	rootCmd.AddCommand(linkCmd)
}

func runLink(cmd *cobra.Command, args []string) error {
	examID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return err
	}
	questionID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return err
	}

	svc, cleanup := mustOpenService()
	defer cleanup()

	if linkRemove {
		printResponse(svc.RemoveQuestionFromExam(newContext(), examID, questionID))
		return nil
	}
	printResponse(svc.AddQuestionToExam(newContext(), examID, questionID, linkNumber))
	return nil
}
