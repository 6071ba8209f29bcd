package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/resume-intake/internal/document"
	"github.com/spigell/resume-intake/internal/export"
	"github.com/spigell/resume-intake/internal/logger"
	"github.com/spigell/resume-intake/internal/pipeline"
)

var screenCmd = &cobra.Command{
	Use:   "screen [file or directory]...",
	Short: "Screen PDF resumes against a job description",
	Long: `Screen extracts text from every given PDF (directories are searched
recursively), scores each resume with the language model, stores the
candidates and prints the batch sorted by score as JSON.`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		screen(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(screenCmd)

	screenCmd.Flags().String("job-description", "", "job description text")
	screenCmd.Flags().String("job-description-file", "", "file with the job description")
	screenCmd.Flags().String("guidance", "", "recruiter guidance text")
	screenCmd.Flags().String("guidance-file", "", "file with the recruiter guidance")
	screenCmd.Flags().StringP("output", "o", "", "write the JSON result to this file instead of stdout")
	screenCmd.Flags().String("xlsx", "", "also write the batch to this XLSX file")
}

func screen(cmd *cobra.Command, args []string) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the resume-intake", zap.String("version", version))

	// do not bother error since there is a valid parseable config
	pretty, _ := json.MarshalIndent(config, "", "  ")
	logger.Debug(fmt.Sprintf("starting with config: \n %s", pretty))

	jobDescription, err := textFlag(cmd, "job-description")
	if err != nil {
		logger.Fatal("reading job description", zap.Error(err))
	}
	guidance, err := textFlag(cmd, "guidance")
	if err != nil {
		logger.Fatal("reading recruiter guidance", zap.Error(err))
	}

	docs, err := collectDocuments(args)
	if err != nil {
		logger.Fatal("collecting documents", zap.Error(err))
	}
	logger.Info("documents collected", zap.Int("count", len(docs)))

	c, err := buildComponents(ctx, config, logger)
	if err != nil {
		logger.Fatal("building pipeline", zap.Error(err))
	}
	defer c.Close()

	result, batchErr := c.pipeline.ProcessBatch(ctx, docs, jobDescription, guidance)
	if result == nil {
		if errors.Is(batchErr, pipeline.ErrInvalidRequest) {
			logger.Fatal("invalid batch", zap.Error(batchErr), zap.String("hint", "pass PDF files and --job-description or --job-description-file"))
		}
		logger.Fatal("processing batch", zap.Error(batchErr))
	}

	if err := writeResult(cmd, result); err != nil {
		logger.Fatal("writing result", zap.Error(err))
	}

	if path, _ := cmd.Flags().GetString("xlsx"); path != "" {
		if err := writeXLSXFile(path, result); err != nil {
			logger.Fatal("writing xlsx", zap.Error(err))
		}
		logger.Info("xlsx report written", zap.String("filename", path))
	}

	if batchErr != nil {
		logger.Fatal("batch interrupted", zap.Error(batchErr), zap.Int("processed", result.TotalProcessed))
	}

	logger.Info("batch complete", zap.Int("processed", result.TotalProcessed))
}

// textFlag returns the value of name, or the contents of the file named by
// name-file when the inline value is empty.
func textFlag(cmd *cobra.Command, name string) (string, error) {
	value, _ := cmd.Flags().GetString(name)
	if strings.TrimSpace(value) != "" {
		return value, nil
	}

	file, _ := cmd.Flags().GetString(name + "-file")
	if strings.TrimSpace(file) == "" {
		return "", nil
	}

	data, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", file, err)
	}
	return string(data), nil
}

// collectDocuments loads the given files as is and every *.pdf below the given
// directories, in lexical order.
func collectDocuments(paths []string) ([]document.Document, error) {
	var docs []document.Document

	add := func(path string) error {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		docs = append(docs, document.Document{Name: filepath.Base(path), Data: data})
		return nil
	}

	for _, root := range paths {
		info, err := os.Stat(root)
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if err := add(root); err != nil {
				return nil, err
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".pdf") {
				return nil
			}
			return add(path)
		})
		if err != nil {
			return nil, err
		}
	}

	return docs, nil
}

func writeResult(cmd *cobra.Command, result *pipeline.Result) error {
	var out io.Writer = cmd.OutOrStdout()

	if path, _ := cmd.Flags().GetString("output"); path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeXLSXFile(path string, result *pipeline.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	if err := export.WriteXLSX(f, result.Candidates); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
