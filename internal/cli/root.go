// Package cli wires the codeq commands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sprite-ai/codeq/internal/ai"
	"github.com/sprite-ai/codeq/internal/assist"
	"github.com/sprite-ai/codeq/internal/config"
	"github.com/sprite-ai/codeq/internal/logging"
	"github.com/sprite-ai/codeq/internal/metrics"
	"github.com/sprite-ai/codeq/internal/pipeline"
)

// ExitError carries a process exit code without printing anything more.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string { return fmt.Sprintf("exit status %d", e.Code) }

// app is built once per invocation by the root command.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	recorder  *metrics.Recorder
	analyzer  *pipeline.Analyzer
	assistant *assist.Assistant
}

var current *app

var rootCmd = &cobra.Command{
	Use:   "codeq",
	Short: "Code quality analysis: complexity, security and risk for snippets",
	Long: `codeq estimates the time and space complexity, cyclomatic complexity,
maintainability, security findings and overall risk of a code snippet, and
compares two versions of the same code.

An AI backend (Gemini or OpenAI) is used when an API key is configured to
correct invalid code, detect ambiguous languages and summarize results.
Without one every AI-assisted step falls back to deterministic output.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if current != nil {
			_ = current.logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringP("config", "c", "", "path to config file")
	rootCmd.PersistentFlags().String("log-level", "", "override the configured log level")
	rootCmd.PersistentFlags().String("provider", "", "AI provider: auto, stub, gemini, openai")

	rootCmd.AddCommand(analyzeCmd, compareCmd, scanCmd, explainCmd, suggestCmd,
		autofixCmd, chatCmd, serveCmd, versionCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if provider, _ := cmd.Flags().GetString("provider"); provider != "" {
		cfg.AI.Provider = provider
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	if cmd != serveCmd {
		logger = logging.Quiet(logger)
	}

	a := &app{cfg: cfg, logger: logger}
	if cmd == serveCmd {
		a.recorder = metrics.New()
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	guard := ai.NewGuardFromConfig(ctx, cfg, logger, observer(a.recorder))
	a.analyzer = pipeline.New(guard,
		pipeline.WithLogger(logger),
		pipeline.WithRecorder(a.recorder),
		pipeline.WithPromptLimit(cfg.AI.MaxPromptChars),
	)
	a.assistant = assist.New(guard, cfg.AI.MaxPromptChars)
	current = a
	return nil
}

// observer avoids handing the guard a typed nil.
func observer(r *metrics.Recorder) ai.Observer {
	if r == nil {
		return nil
	}
	return r
}

// Execute runs the root command. It returns the error that should decide
// the exit status; usage and runtime errors are already printed.
func Execute() error {
	err := rootCmd.Execute()
	var exit *ExitError
	if err != nil && !errors.As(err, &exit) {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return err
}

// readInput reads a file argument, or stdin for "-".
func readInput(cmd *cobra.Command, arg string) (string, error) {
	if arg == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(arg)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", arg, err)
	}
	return string(data), nil
}

func argOrStdin(args []string) string {
	if len(args) == 0 {
		return "-"
	}
	return args[0]
}

func displayName(arg string) string {
	if arg == "-" {
		return "stdin"
	}
	return arg
}

func validFormat(format string, allowed ...string) error {
	for _, a := range allowed {
		if format == a {
			return nil
		}
	}
	return fmt.Errorf("unknown format %q (want %s)", format, strings.Join(allowed, ", "))
}
