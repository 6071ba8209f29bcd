package cmd

import (
	"context"
	"log"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-intake/internal/logger"
	"github.com/spigell/resume-intake/internal/pipeline"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write every stored candidate to an XLSX report",
	Run: func(cmd *cobra.Command, _ []string) {
		exportCandidates(cmd)
	},
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringP("output", "o", "candidates.xlsx", "path of the XLSX report")
	exportCmd.Flags().Bool("approved-only", false, "export only approved candidates")
}

func exportCandidates(cmd *cobra.Command) {
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

	list, err := repo.List(ctx)
	if err != nil {
		logger.Fatal("listing candidates", zap.Error(err))
	}

	if approvedOnly, _ := cmd.Flags().GetBool("approved-only"); approvedOnly {
		approved := list[:0]
		for _, c := range list {
			if c.Approved {
				approved = append(approved, c)
			}
		}
		list = approved
	}

	path, _ := cmd.Flags().GetString("output")
	if err := writeXLSXFile(path, &pipeline.Result{TotalProcessed: len(list), Candidates: list}); err != nil {
		logger.Fatal("writing xlsx", zap.Error(err))
	}

	logger.Info("xlsx report written", zap.String("filename", path), zap.Int("candidates", len(list)))
}
