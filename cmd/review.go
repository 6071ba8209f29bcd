package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-intake/internal/candidate"
	"github.com/spigell/resume-intake/internal/logger"
	"github.com/spigell/resume-intake/internal/storage"
)

const (
	PromptExit    = "exit"
	approvedMark  = "[x]"
	pendingMark   = "[ ]"
	reviewPageLen = 15
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Review stored candidates and toggle their approval",
	Run: func(cmd *cobra.Command, _ []string) {
		review(cmd)
	},
}

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().Bool("include-flagged", false, "also list candidates that could not be scored")
}

func review(cmd *cobra.Command) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}
	if config.Storage == nil || config.Storage.Documents == nil {
		logger.Fatal("storage.documents configuration is required")
	}

	repo, err := openRepository(ctx, config.Storage.Documents, logger)
	if err != nil {
		logger.Fatal("opening candidate store", zap.Error(err))
	}
	defer repo.Close()

	includeFlagged, _ := cmd.Flags().GetBool("include-flagged")

	if err := reviewLoop(ctx, repo, includeFlagged, logger); err != nil {
		logger.Fatal("exiting", zap.Error(err))
	}
}

func reviewLoop(ctx context.Context, repo storage.Repository, includeFlagged bool, logger *zap.Logger) error {
	cursor := 0
	for {
		all, err := repo.List(ctx)
		if err != nil {
			return fmt.Errorf("listing candidates: %w", err)
		}

		candidates := reviewable(all, includeFlagged)
		if len(candidates) == 0 {
			logger.Info("exiting", zap.String("reason", "no candidates to review"))
			return nil
		}

		items := make([]string, 0, len(candidates)+1)
		for _, c := range candidates {
			items = append(items, reviewLabel(c))
		}

		reviewPrompt := promptui.Select{
			Label:     "Choose a candidate and press ENTER to toggle approval",
			Items:     append(items, PromptExit),
			Size:      reviewPageLen,
			CursorPos: min(cursor, len(items)),
		}

		idx, selected, err := reviewPrompt.Run()
		if err != nil {
			return err
		}
		if selected == PromptExit {
			return nil
		}

		c := candidates[idx]
		updated, err := repo.SetApproved(ctx, c.ID, !c.Approved)
		if err != nil {
			return fmt.Errorf("updating candidate %s: %w", c.ID, err)
		}

		logger.Info("candidate approval changed",
			zap.String("candidate_id", updated.ID),
			zap.String("name", updated.Name),
			zap.Bool("approved", updated.Approved),
		)
		cursor = idx
	}
}

// reviewable drops sentinel records unless includeFlagged is set.
func reviewable(all []candidate.Candidate, includeFlagged bool) []candidate.Candidate {
	if includeFlagged {
		return all
	}

	out := make([]candidate.Candidate, 0, len(all))
	for _, c := range all {
		if c.Status == "" || c.Status == candidate.StatusOK {
			out = append(out, c)
		}
	}
	return out
}

func reviewLabel(c candidate.Candidate) string {
	mark := pendingMark
	if c.Approved {
		mark = approvedMark
	}

	label := fmt.Sprintf("%s %3d  %s <%s>", mark, c.Score, c.Name, c.Email)
	if c.JobTitle != "" {
		label += " / " + c.JobTitle
	}
	if c.Status != "" && c.Status != candidate.StatusOK {
		label += " (" + c.Status + ")"
	}
	return label
}
