package config

import (
	"github.com/garyjia/claims-workflow/internal/container"
)

// ToContainerConfig converts the file-based Config into the container's
// configuration structure.
func (c *Config) ToContainerConfig() *container.Config {
	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
		},
		Policy: c.Policies(),
		Lark: container.LarkConfig{
			AppID:             c.Lark.AppID,
			AppSecret:         c.Lark.AppSecret,
			CoordinatorChatID: c.Lark.CoordinatorChatID,
			ManagerChatID:     c.Lark.ManagerChatID,
			FinanceChatID:     c.Lark.FinanceChatID,
		},
		Storage: container.StorageConfig{
			DocumentsDir: c.Storage.DocumentsDir,
			ReportsDir:   c.Storage.ReportsDir,
		},
		Dispatcher: container.DispatcherConfig{
			HandlerTimeout: c.Dispatcher.HandlerTimeout,
		},
	}
}
