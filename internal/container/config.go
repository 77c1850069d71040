// Package container provides dependency injection and lifecycle management
// for the claims workflow service.
package container

import (
	"fmt"
	"time"

	"github.com/garyjia/claims-workflow/internal/application/policy"
)

// Config holds all configuration for the Container.
// It aggregates configurations for all subsystems.
type Config struct {
	Database   DatabaseConfig
	Policy     policy.Policies
	Lark       LarkConfig
	Storage    StorageConfig
	Dispatcher DispatcherConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long a writer waits for the SQLite lock
	BusyTimeout time.Duration
}

// LarkConfig holds Lark API settings and notification targets.
type LarkConfig struct {
	AppID     string
	AppSecret string

	CoordinatorChatID string
	ManagerChatID     string
	FinanceChatID     string
}

// StorageConfig holds file storage settings.
type StorageConfig struct {
	// DocumentsDir is the root that supporting-document references resolve against
	DocumentsDir string

	// ReportsDir receives saved reports. Empty disables saving.
	ReportsDir string
}

// DispatcherConfig holds event dispatcher settings.
type DispatcherConfig struct {
	HandlerTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/claims.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			BusyTimeout:     5 * time.Second,
		},
		Policy: policy.Policies{
			MaxHoursPerClaim:       180,
			MaxAmountPerClaim:      10000,
			AllowedHourlyRates:     []float64{150, 200, 250, 300},
			MonthlyBudgetPerUser:   50000,
			AutoApproveSmallClaims: true,
			AutoApproveThreshold:   5000,
		},
		Storage: StorageConfig{
			DocumentsDir: "data/documents",
			ReportsDir:   "data/reports",
		},
		Dispatcher: DispatcherConfig{
			HandlerTimeout: 30 * time.Second,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	if c.Storage.DocumentsDir == "" {
		return fmt.Errorf("documents directory is required")
	}
	if err := c.Policy.Validate(); err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	return nil
}
