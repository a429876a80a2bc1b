package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"crm-agent-backend/controller"
	"crm-agent-backend/router"
	"crm-agent-backend/service/agent/contextual"
	"crm-agent-backend/service/chat"
	"crm-agent-backend/service/mcpserver"
	"crm-agent-backend/service/mq"
	"crm-agent-backend/service/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API, the cleanup scheduler and the MQ consumer",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.JWT.SecretKey == "" {
			return errors.New("jwt secret key is required to serve")
		}
		gin.SetMode(cfg.Server.Mode)

		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		reasoner, err := chat.NewLLMReasoner(cfg.Model)
		if err != nil {
			return err
		}
		agent := chat.NewAgent(a.registry, a.executor, a.sessions, contextual.NewBuilder(a.db), reasoner)

		opts := router.Options{
			JWTSecret:   cfg.JWT.SecretKey,
			CORSOrigins: cfg.Server.CORSOrigins,
		}
		if cfg.MCP.Enabled {
			mcpServer, err := mcpserver.New(a.registry, a.executor)
			if err != nil {
				return err
			}
			opts.MCPHandler = mcpServer.Handler()
		}

		if a.mqClient != nil {
			if err := a.mqClient.RegisterHandler(mq.TopicAgentMaintenance, mq.TagSessionCleanup,
				mq.HandleSessionCleanup(a.sessions)); err != nil {
				return err
			}
			if err := a.mqClient.Start(); err != nil {
				return err
			}
		}

		srv := &http.Server{
			Addr:              cfg.Addr(),
			Handler:           router.Register(controller.NewAgentController(agent), opts),
			ReadHeaderTimeout: 10 * time.Second,
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eg, ctx := errgroup.WithContext(ctx)
		eg.Go(func() error {
			return scheduler.New(a.sessions, cfg.Agent.CleanupCron).Run(ctx)
		})
		eg.Go(func() error {
			slog.Info("Starting HTTP server", "addr", srv.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		eg.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		err = eg.Wait()
		slog.Info("Server stopped")
		return err
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
