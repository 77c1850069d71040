package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/claims-workflow/internal/application/policy"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Policy     PolicyConfig     `mapstructure:"policy"`
	Lark       LarkConfig       `mapstructure:"lark"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Dispatcher DispatcherConfig `mapstructure:"dispatcher"`
	Logger     LoggerConfig     `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
}

// PolicyConfig holds the claim limits. Read once at startup.
type PolicyConfig struct {
	MaxHoursPerClaim       float64   `mapstructure:"max_hours_per_claim"`
	MaxAmountPerClaim      float64   `mapstructure:"max_amount_per_claim"`
	AllowedHourlyRates     []float64 `mapstructure:"allowed_hourly_rates"`
	MonthlyBudgetPerUser   float64   `mapstructure:"monthly_budget_per_user"`
	AutoApproveSmallClaims bool      `mapstructure:"auto_approve_small_claims"`
	AutoApproveThreshold   float64   `mapstructure:"auto_approve_threshold"`
}

// LarkConfig holds Lark credentials and the chats that receive approver notifications.
// Leaving the credentials empty disables notifications.
type LarkConfig struct {
	AppID             string `mapstructure:"app_id"`
	AppSecret         string `mapstructure:"app_secret"`
	CoordinatorChatID string `mapstructure:"coordinator_chat_id"`
	ManagerChatID     string `mapstructure:"manager_chat_id"`
	FinanceChatID     string `mapstructure:"finance_chat_id"`
}

// StorageConfig holds file locations
type StorageConfig struct {
	DocumentsDir string `mapstructure:"documents_dir"`
	ReportsDir   string `mapstructure:"reports_dir"`
}

// DispatcherConfig holds event dispatcher configuration
type DispatcherConfig struct {
	HandlerTimeout time.Duration `mapstructure:"handler_timeout"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configuration from the YAML file at configPath, then applies
// environment overrides. An empty path loads defaults and environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("CLAIMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, fmt.Errorf("failed to bind environment: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	// Database defaults
	v.SetDefault("database.path", "data/claims.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.busy_timeout", 5*time.Second)

	// Policy defaults
	v.SetDefault("policy.max_hours_per_claim", 180.0)
	v.SetDefault("policy.max_amount_per_claim", 10000.0)
	v.SetDefault("policy.allowed_hourly_rates", []float64{150, 200, 250, 300})
	v.SetDefault("policy.monthly_budget_per_user", 50000.0)
	v.SetDefault("policy.auto_approve_small_claims", true)
	v.SetDefault("policy.auto_approve_threshold", 5000.0)

	// Lark defaults
	v.SetDefault("lark.app_id", "")
	v.SetDefault("lark.app_secret", "")
	v.SetDefault("lark.coordinator_chat_id", "")
	v.SetDefault("lark.manager_chat_id", "")
	v.SetDefault("lark.finance_chat_id", "")

	// Storage defaults
	v.SetDefault("storage.documents_dir", "data/documents")
	v.SetDefault("storage.reports_dir", "data/reports")

	v.SetDefault("dispatcher.handler_timeout", 30*time.Second)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds the unprefixed variables shared with other Lark tooling
func bindEnvVars(v *viper.Viper) error {
	if err := v.BindEnv("lark.app_id", "CLAIMS_LARK_APP_ID", "LARK_APP_ID"); err != nil {
		return err
	}
	return v.BindEnv("lark.app_secret", "CLAIMS_LARK_APP_SECRET", "LARK_APP_SECRET")
}

// Policies converts the policy section into the value the policy provider serves
func (c *Config) Policies() policy.Policies {
	return policy.Policies{
		MaxHoursPerClaim:       c.Policy.MaxHoursPerClaim,
		MaxAmountPerClaim:      c.Policy.MaxAmountPerClaim,
		AllowedHourlyRates:     append([]float64(nil), c.Policy.AllowedHourlyRates...),
		MonthlyBudgetPerUser:   c.Policy.MonthlyBudgetPerUser,
		AutoApproveSmallClaims: c.Policy.AutoApproveSmallClaims,
		AutoApproveThreshold:   c.Policy.AutoApproveThreshold,
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if err := c.Policies().Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	if c.Storage.DocumentsDir == "" {
		return fmt.Errorf("storage.documents_dir is required")
	}

	// Credentials come as a pair
	if (c.Lark.AppID == "") != (c.Lark.AppSecret == "") {
		return fmt.Errorf("lark.app_id and lark.app_secret must be set together")
	}

	return nil
}
