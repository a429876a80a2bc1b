package main

import (
	"fmt"
	"log/slog"

	"crm-agent-backend/config"
	"crm-agent-backend/dao"
	"crm-agent-backend/service/agent/action"
	"crm-agent-backend/service/agent/session"
	"crm-agent-backend/service/agent/tool"
	"crm-agent-backend/service/archive"
	"crm-agent-backend/service/crmtools"
	"crm-agent-backend/service/mq"

	"gorm.io/gorm"
)

// app 各命令共用的核心组件
type app struct {
	cfg      *config.Config
	db       *gorm.DB
	registry *tool.Registry
	executor *action.Executor
	sessions *session.Manager

	// MQ 未启用时为 nil
	mqClient *mq.Client
}

func newApp(cfg *config.Config) (*app, error) {
	if err := dao.Init(cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}
	a := &app{
		cfg:      cfg,
		db:       dao.DB,
		registry: tool.NewRegistry(crmtools.Tools(dao.DB, nil)...),
	}

	var executorOpts []action.Option
	executorOpts = append(executorOpts, action.WithToolTimeout(cfg.Agent.ToolTimeout))
	if cfg.MQ.Enabled {
		client, err := mq.NewClient(cfg.MQ)
		if err != nil {
			return nil, err
		}
		a.mqClient = client
		executorOpts = append(executorOpts, action.WithPublisher(mq.NewActionPublisher(client)))
	}
	a.executor = action.NewExecutor(a.db, a.registry, executorOpts...)

	sessionOpts := []session.Option{
		session.WithTTL(cfg.Agent.SessionTTL),
		session.WithMaxMessages(cfg.Agent.MaxSessionMessages),
	}
	if cfg.OSS.Enabled {
		sessionOpts = append(sessionOpts, session.WithArchiver(archive.NewOSSArchiver(cfg.OSS)))
	}
	a.sessions = session.NewManager(a.db, sessionOpts...)

	slog.Info("Agent core initialized",
		"tools", len(a.registry.GetAll()),
		"db_driver", cfg.Database.Driver,
		"mq_enabled", cfg.MQ.Enabled,
		"oss_enabled", cfg.OSS.Enabled)
	return a, nil
}

func (a *app) close() {
	if a.mqClient != nil {
		a.mqClient.Shutdown()
	}
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
}
