package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/interview"
)

const (
	PromptRetry     = "Retry the answer"
	PromptEnd       = "End the interview"
	PromptYes       = "Yes"
	PromptNo        = "No"
	endInterviewCmd = "/end"
)

var errExit = errors.New("exit requested")

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Run an interview in the terminal",
	Run: func(cmd *cobra.Command, _ []string) {
		practice(cmd)
	},
}

func init() {
	rootCmd.AddCommand(practiceCmd)

	practiceCmd.Flags().StringP("company", "c", "", "company to interview for (asked interactively when empty)")
	practiceCmd.Flags().StringP("type", "t", "", "interview type (asked interactively when empty)")
}

func practice(cmd *cobra.Command) {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	logger, config := setup()
	defer logger.Sync()

	svc, err := newService(ctx, config, logger)
	if err != nil {
		logger.Fatal("creating the interview service", zap.Error(err))
	}

	company, _ := cmd.Flags().GetString("company")
	if company == "" {
		company, err = selectItem("Company", svc.Companies())
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	interviewType, _ := cmd.Flags().GetString("type")
	if interviewType == "" {
		types, err := svc.InterviewTypes(company)
		if err != nil {
			logger.Fatal("listing interview types", zap.Error(err))
		}
		interviewType, err = selectItem("Interview type", types)
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}
	}

	start, err := svc.Start(ctx, company, interviewType, false)
	if err != nil {
		logger.Fatal("starting the interview", zap.Error(err))
	}

	fmt.Fprintf(out, "\n%s %s interview, %d questions. Type %s to finish early.\n\n", start.Company, start.InterviewType, start.TotalQuestions, endInterviewCmd)
	fmt.Fprintf(out, "Question 1/%d: %s\n\n", start.TotalQuestions, start.Question)

	if err := answerLoop(ctx, out, svc, start.SessionID, logger); err != nil {
		if errors.Is(err, errExit) {
			logger.Info("exiting", zap.String("reason", "interview abandoned"))
			return
		}
		logger.Fatal("exiting", zap.Error(err))
	}

	res, err := svc.End(ctx, start.SessionID)
	if err != nil {
		logger.Fatal("generating final feedback", zap.Error(err))
	}

	printSummary(out, res)
}

func answerLoop(ctx context.Context, out io.Writer, svc *interview.Service, id string, logger *zap.Logger) error {
	answerPrompt := promptui.Prompt{
		Label: "Your answer",
		Validate: func(input string) error {
			if strings.TrimSpace(input) == "" {
				return errors.New("answer must not be empty")
			}
			return nil
		},
	}

	for {
		answer, err := answerPrompt.Run()
		if err != nil {
			return fmt.Errorf("%w: %w", errExit, err)
		}

		if strings.TrimSpace(answer) == endInterviewCmd {
			return nil
		}

		res, err := svc.SubmitAnswer(ctx, id, answer)
		switch {
		case errors.Is(err, interview.ErrEvaluationFailed):
			logger.Warn("answer evaluation failed", zap.Error(err))
			action, err := selectItem("Evaluation failed", []string{PromptRetry, PromptEnd})
			if err != nil {
				return fmt.Errorf("%w: %w", errExit, err)
			}
			if action == PromptEnd {
				return nil
			}
			continue
		case errors.Is(err, interview.ErrInterviewFinished):
			return nil
		case err != nil:
			return err
		}

		fmt.Fprintf(out, "\nFeedback:\n%s\n", res.Evaluation)
		if len(res.FollowUpQuestions) > 0 {
			fmt.Fprintln(out, "\nFollow-up questions to think about:")
			for _, q := range res.FollowUpQuestions {
				fmt.Fprintf(out, "  - %s\n", q)
			}
		}

		if res.Question == interview.ClosingPrompt {
			fmt.Fprintf(out, "\n%s\n", res.Question)
			action, err := selectItem("End now?", []string{PromptYes, PromptNo})
			if err != nil || action == PromptNo {
				return errExit
			}
			return nil
		}

		fmt.Fprintf(out, "\nQuestion %d/%d: %s\n\n", res.QuestionNumber, res.TotalQuestions, res.Question)
	}
}

func printSummary(out io.Writer, res *interview.EndResult) {
	fmt.Fprintf(out, "\nFinal feedback for %s:\n%s\n", res.Company, res.Feedback)

	printList(out, "Strengths", res.Strengths)
	printList(out, "Areas for improvement", res.Improvements)

	if res.OverallRating != "" {
		fmt.Fprintf(out, "\nOverall rating: %s\n", res.OverallRating)
	}
}

func printList(out io.Writer, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "\n%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(out, "  - %s\n", item)
	}
}

func selectItem(label string, items []string) (string, error) {
	if len(items) == 0 {
		return "", fmt.Errorf("nothing to choose for %s", strings.ToLower(label))
	}

	prompt := promptui.Select{
		Label: label,
		Items: items,
	}

	_, selected, err := prompt.Run()
	return selected, err
}
