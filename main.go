package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"gridball/server"
)

// gridball 入口：启动 HTTP + WebSocket 服务，世界状态由 App 持有
func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cfg := server.ConfigFromEnv(os.Getenv)
	var origins string

	cmd := &cobra.Command{
		Use:          "gridball",
		Short:        "Real-time grid game state sync server",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("origins") {
				cfg.AllowedOrigins = server.ParseOrigins(origins)
			}
			// 使用 zap 日志库写入 app.log（带滚动），同时输出到控制台
			log := server.NewLogger(cfg.LogFile, os.Stderr)
			defer server.SyncLogger(log)

			app := server.NewApp(cfg, log)

			// 优雅退出（Ctrl+C）
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if err := app.Run(ctx); err != nil {
				log.Errorf("server: %v", err)
				return err
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&cfg.Addr, "addr", cfg.Addr, "server listen address, e.g. :8080 (env: GRIDBALL_ADDR, PORT)")
	cmd.Flags().StringVar(&cfg.StaticDir, "static", cfg.StaticDir, "frontend static directory, empty to disable (env: GRIDBALL_STATIC_DIR)")
	cmd.Flags().StringVar(&cfg.LogFile, "log-file", cfg.LogFile, "rolling log file path, empty to disable (env: GRIDBALL_LOG_FILE)")
	cmd.Flags().StringVar(&origins, "origins", "", "comma separated allowed origins, * for any (env: GRIDBALL_ALLOWED_ORIGINS)")
	cmd.Flags().IntVar(&cfg.SendBuffer, "send-buffer", cfg.SendBuffer, "per-connection send queue size (env: GRIDBALL_SEND_BUFFER)")
	return cmd
}
