package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v10"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigPath = "config.yaml"

	// 会话自创建起固定 7 天过期，不随活动续期
	DefaultSessionTTL         = 7 * 24 * time.Hour
	DefaultMaxSessionMessages = 50
	DefaultCleanupCron        = "0 * * * *"
)

type Config struct {
	Server   ServerConfig   `yaml:"server" envPrefix:"SERVER_"`
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`
	JWT      JWTConfig      `yaml:"jwt" envPrefix:"JWT_"`
	Model    ModelConfig    `yaml:"model" envPrefix:"MODEL_"`
	Agent    AgentConfig    `yaml:"agent" envPrefix:"AGENT_"`
	MQ       MQConfig       `yaml:"mq" envPrefix:"MQ_"`
	OSS      OSSConfig      `yaml:"oss" envPrefix:"OSS_"`
	MCP      MCPConfig      `yaml:"mcp" envPrefix:"MCP_"`
}

type ServerConfig struct {
	Port        int      `yaml:"port" env:"PORT"`
	Mode        string   `yaml:"mode" env:"MODE"`
	CORSOrigins []string `yaml:"cors_origins" env:"CORS_ORIGINS" envSeparator:","`
}

type DatabaseConfig struct {
	// mysql 或 sqlite
	Driver          string        `yaml:"driver" env:"DRIVER"`
	DSN             string        `yaml:"dsn" env:"DSN"`
	MaxIdleConns    int           `yaml:"max_idle_conns" env:"MAX_IDLE_CONNS"`
	MaxOpenConns    int           `yaml:"max_open_conns" env:"MAX_OPEN_CONNS"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime" env:"CONN_MAX_LIFETIME"`
}

type JWTConfig struct {
	SecretKey string `yaml:"secret_key" env:"SECRET_KEY"`
}

type ModelConfig struct {
	APIKey  string        `yaml:"api_key" env:"API_KEY"`
	BaseURL string        `yaml:"base_url" env:"BASE_URL"`
	Name    string        `yaml:"name" env:"NAME"`
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

type AgentConfig struct {
	SessionTTL         time.Duration `yaml:"session_ttl" env:"SESSION_TTL"`
	MaxSessionMessages int           `yaml:"max_session_messages" env:"MAX_SESSION_MESSAGES"`
	CleanupCron        string        `yaml:"cleanup_cron" env:"CLEANUP_CRON"`
	ToolTimeout        time.Duration `yaml:"tool_timeout" env:"TOOL_TIMEOUT"`
}

type MQConfig struct {
	Enabled    bool     `yaml:"enabled" env:"ENABLED"`
	NameServer []string `yaml:"name_server" env:"NAME_SERVER" envSeparator:","`
}

type OSSConfig struct {
	Enabled         bool   `yaml:"enabled" env:"ENABLED"`
	Region          string `yaml:"region" env:"REGION"`
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	AccessKeySecret string `yaml:"access_key_secret" env:"ACCESS_KEY_SECRET"`
	BucketName      string `yaml:"bucket_name" env:"BUCKET_NAME"`

	// 归档对象的key前缀
	ArchivePrefix string `yaml:"archive_prefix" env:"ARCHIVE_PREFIX"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled" env:"ENABLED"`
}

// Cfg 全局配置，由 Load 初始化
var Cfg *Config

// Load 读取YAML配置文件，再用 CRM_ 前缀的环境变量覆盖
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		case os.IsNotExist(err) && path == DefaultConfigPath:
			// 默认路径下没有配置文件时只使用环境变量
		default:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	if err := env.ParseWithOptions(cfg, env.Options{Prefix: "CRM_"}); err != nil {
		return nil, fmt.Errorf("failed to parse env config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	Cfg = cfg
	return cfg, nil
}

// Default 返回本地开发用的默认配置
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: 8080,
			Mode: "release",
		},
		Database: DatabaseConfig{
			Driver:          "sqlite",
			DSN:             "crm-agent.db",
			MaxIdleConns:    5,
			MaxOpenConns:    20,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Model: ModelConfig{
			BaseURL: "https://dashscope.aliyuncs.com/compatible-mode/v1",
			Name:    "qwen-plus",
			Timeout: 300 * time.Second,
		},
		Agent: AgentConfig{
			SessionTTL:         DefaultSessionTTL,
			MaxSessionMessages: DefaultMaxSessionMessages,
			CleanupCron:        DefaultCleanupCron,
			ToolTimeout:        30 * time.Second,
		},
		OSS: OSSConfig{
			ArchivePrefix: "agent-sessions/",
		},
	}
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver: %q", c.Database.Driver)
	}

	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}

	if c.Agent.SessionTTL <= 0 {
		c.Agent.SessionTTL = DefaultSessionTTL
	}
	if c.Agent.MaxSessionMessages <= 0 {
		c.Agent.MaxSessionMessages = DefaultMaxSessionMessages
	}

	if c.MQ.Enabled && len(c.MQ.NameServer) == 0 {
		return fmt.Errorf("mq name server is required when mq is enabled")
	}
	if c.OSS.Enabled && c.OSS.BucketName == "" {
		return fmt.Errorf("oss bucket name is required when oss is enabled")
	}

	return nil
}

// Addr 返回HTTP监听地址
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}
