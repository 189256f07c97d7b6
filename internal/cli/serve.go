package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sprite-ai/codeq/internal/api"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the analysis pipeline.

Endpoints:
  GET  /health        Health check and active AI backend
  POST /api/analyze   Analyze one snippet
  POST /api/compare   Compare two versions
  POST /api/scan      Summarize a set of files
  POST /api/explain   Explain a snippet
  POST /api/suggest   Suggest improvements
  POST /api/autofix   Propose a minimal fix
  POST /api/ask       Answer a question about a snippet
  POST /api/chat      Multi-turn chat with an optional snippet
  GET  /api/ws        WebSocket for incremental analysis sessions
  GET  /metrics       Prometheus metrics`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "address to listen on (overrides config)")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := current.cfg
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := api.New(cfg.ListenAddr(), current.analyzer,
		api.WithLogger(current.logger),
		api.WithRecorder(current.recorder),
		api.WithAssistant(current.assistant),
		api.WithServerConfig(cfg.Server),
	)
	current.logger.Info("starting server",
		zap.String("addr", cfg.ListenAddr()),
		zap.String("env", cfg.Env),
		zap.String("backend", current.analyzer.Guard().Backend()),
	)
	return srv.ListenAndServe(ctx)
}
