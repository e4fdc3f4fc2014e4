package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"exambank/internal/catalog"
)

var (
	questionAddText      string
	questionAddCategory  string
	questionAddLevel     string
	questionAddAnswers   []string
	questionAddCorrect   string
	questionAddKas       []string
	questionAddSystems   []string
	questionListCategory string
	questionListLevel    string
	questionListText     string
	questionShowDetails  bool
)

var questionCmd = &cobra.Command{
	Use:   "question",
	Short: "Manage questions",
}

var questionAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a question with answers and taxonomy links",
	Long: `Adds a question atomically with its answers and links. Answers are
given as repeated --answer LABEL=TEXT flags; --correct names the correct
label. Ka links are --ka NUMBER/STEM[@IMPORTANCE]; system links are
--system NUMBER[=DESCRIPTION].`,
	RunE: runQuestionAdd,
}

func runQuestionAdd(cmd *cobra.Command, args []string) error {
	nq := catalog.NewQuestion{
		Question: catalog.Question{
			QuestionText: questionAddText,
			Category:     questionAddCategory,
			ExamLevel:    questionAddLevel,
		},
	}

	for _, spec := range questionAddAnswers {
		label, text, ok := strings.Cut(spec, "=")
		if !ok {
			return fmt.Errorf("answer %q is not LABEL=TEXT", spec)
		}
		nq.Answers = append(nq.Answers, catalog.Answer{
			OptionLabel: label,
			AnswerText:  text,
			IsCorrect:   label == questionAddCorrect,
		})
	}

	for _, spec := range questionAddKas {
		key, importance, _ := strings.Cut(spec, "@")
		kaNumber, stemID, ok := strings.Cut(key, "/")
		if !ok {
			return fmt.Errorf("ka %q is not NUMBER/STEM[@IMPORTANCE]", spec)
		}
		nq.KaRefs = append(nq.KaRefs, catalog.KaRef{
			KaNumber:   kaNumber,
			StemID:     stemID,
			Importance: importance,
		})
	}

	for _, spec := range questionAddSystems {
		number, description, _ := strings.Cut(spec, "=")
		nq.SystemRefs = append(nq.SystemRefs, catalog.SystemRef{
			SystemNumber: number,
			Description:  description,
		})
	}

	svc, cleanup := mustOpenService()
	defer cleanup()
	printResponse(svc.AddQuestion(newContext(), nq))
	return nil
}

var questionListCmd = &cobra.Command{
	Use:   "list",
	Short: "List questions",
	Run: func(cmd *cobra.Command, args []string) {
		svc, cleanup := mustOpenService()
		defer cleanup()

		filter := catalog.QuestionFilter{Text: questionListText}
		if questionListCategory != "" {
			filter.Category = &questionListCategory
		}
		if questionListLevel != "" {
			filter.ExamLevel = &questionListLevel
		}
		printResponse(svc.ListQuestions(newContext(), filter))
	},
}

var questionShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one question",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		svc, cleanup := mustOpenService()
		defer cleanup()
		if questionShowDetails {
			printResponse(svc.QuestionWithDetails(newContext(), id))
		} else {
			printResponse(svc.GetQuestion(newContext(), id))
		}
		return nil
	},
}

var questionDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a question and its answers and links",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		svc, cleanup := mustOpenService()
		defer cleanup()
		printResponse(svc.DeleteQuestion(newContext(), id))
		return nil
	},
}

func init() {
	questionAddCmd.Flags().StringVar(&questionAddText, "text", "", "Question text (required)")
	questionAddCmd.MarkFlagRequired("text")
	questionAddCmd.Flags().StringVar(&questionAddCategory, "category", "", "Question category")
	questionAddCmd.Flags().StringVar(&questionAddLevel, "exam-level", "", "Exam level (RO, SRO)")
	questionAddCmd.Flags().StringArrayVar(&questionAddAnswers, "answer", nil, "Answer as LABEL=TEXT (repeatable)")
	questionAddCmd.Flags().StringVar(&questionAddCorrect, "correct", "", "Label of the correct answer")
	questionAddCmd.Flags().StringArrayVar(&questionAddKas, "ka", nil, "Ka link as NUMBER/STEM[@IMPORTANCE] (repeatable)")
	questionAddCmd.Flags().StringArrayVar(&questionAddSystems, "system", nil, "System link as NUMBER[=DESCRIPTION] (repeatable)")

	questionListCmd.Flags().StringVar(&questionListCategory, "category", "", "Filter by exact category")
	questionListCmd.Flags().StringVar(&questionListLevel, "exam-level", "", "Filter by exact exam level")
	questionListCmd.Flags().StringVar(&questionListText, "text", "", "Filter by question text substring")

	questionShowCmd.Flags().BoolVar(&questionShowDetails, "details", false, "Include answers and taxonomy links")

	questionCmd.AddCommand(questionAddCmd, questionListCmd, questionShowCmd, questionDeleteCmd)
	rootCmd.AddCommand(questionCmd)
}
