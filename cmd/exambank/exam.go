package main

import (
	"strconv"

	"github.com/spf13/cobra"

	"exambank/internal/catalog"
)

var (
	examAddPlantID int64
	examListName   string
	examListPlant  int64
)

var examCmd = &cobra.Command{
	Use:   "exam",
	Short: "Manage exams",
}

var examAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an exam under a plant",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		svc, cleanup := mustOpenService()
		defer cleanup()
		printResponse(svc.AddExam(newContext(), catalog.Exam{
			ExamName: args[0],
			PlantID:  examAddPlantID,
		}))
	},
}

var examListCmd = &cobra.Command{
	Use:   "list",
	Short: "List exams",
	Run: func(cmd *cobra.Command, args []string) {
		svc, cleanup := mustOpenService()
		defer cleanup()

		var filter catalog.ExamFilter
		if examListName != "" {
			filter.Name = &examListName
		}
		if examListPlant != 0 {
			filter.PlantID = &examListPlant
		}
		printResponse(svc.ListExams(newContext(), filter))
	},
}

var examShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show an exam with its questions in order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		svc, cleanup := mustOpenService()
		defer cleanup()
		printResponse(svc.ExamWithQuestions(newContext(), id))
		return nil
	},
}

var examDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete an exam",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		svc, cleanup := mustOpenService()
		defer cleanup()
		printResponse(svc.DeleteExam(newContext(), id))
		return nil
	},
}

func init() {
	examAddCmd.Flags().Int64Var(&examAddPlantID, "plant", 0, "Owning plant id (required)")
	examAddCmd.MarkFlagRequired("plant")
	examListCmd.Flags().StringVar(&examListName, "name", "", "Filter by exact exam name")
	examListCmd.Flags().Int64Var(&examListPlant, "plant", 0, "Filter by plant id")
	examCmd.AddCommand(examAddCmd, examListCmd, examShowCmd, examDeleteCmd)
	rootCmd.AddCommand(examCmd)
}
