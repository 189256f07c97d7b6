package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sprite-ai/codeq/internal/model"
)

const watchDebounce = 200 * time.Millisecond

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file|-]",
	Short: "Analyze a code snippet",
	Long: `Detect the language, validate (with one AI correction attempt), and
report complexity, maintainability, security findings and risk.

Examples:
  codeq analyze main.py
  codeq analyze --language java Solver.java
  cat snippet.txt | codeq analyze -
  codeq analyze --watch main.py

Exit codes:
  0 - analysis completed
  2 - the code is empty or still invalid after correction`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringP("language", "l", "", "language override (skips detection)")
	analyzeCmd.Flags().StringP("format", "f", formatText, "output format: text, json, markdown, pretty")
	analyzeCmd.Flags().BoolP("watch", "w", false, "re-analyze the file whenever it changes")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	if err := validFormat(format, reportFormats...); err != nil {
		return err
	}
	language, _ := cmd.Flags().GetString("language")
	arg := argOrStdin(args)

	watch, _ := cmd.Flags().GetBool("watch")
	if watch {
		if arg == "-" {
			return fmt.Errorf("--watch needs a file argument")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return watchFile(ctx, arg, current.logger, func() error {
			_, err := analyzeOnce(cmd, arg, language, format)
			return err
		})
	}

	res, err := analyzeOnce(cmd, arg, language, format)
	if err != nil {
		return err
	}
	if res.Failed() {
		return &ExitError{Code: 2}
	}
	return nil
}

func analyzeOnce(cmd *cobra.Command, arg, language, format string) (*model.Result, error) {
	code, err := readInput(cmd, arg)
	if err != nil {
		return nil, err
	}

	res := current.analyzer.Analyze(cmd.Context(), model.Submission{
		Code:     code,
		Language: language,
		FileName: displayName(arg),
	})
	if err := writeResult(cmd.OutOrStdout(), res, displayName(arg), format); err != nil {
		return nil, err
	}
	return res, nil
}

// watchFile calls run once, then again after every write to path, until
// ctx is done. Editors that replace the file are handled by watching the
// directory.
func watchFile(ctx context.Context, path string, logger *zap.Logger, run func() error) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watching %s: %w", path, err)
	}

	if err := run(); err != nil {
		return err
	}

	var debounce <-chan time.Time
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce = time.After(watchDebounce)

		case <-debounce:
			debounce = nil
			if err := run(); err != nil {
				logger.Warn("re-analysis failed", zap.Error(err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watch error", zap.Error(err))

		case <-ctx.Done():
			return nil
		}
	}
}
