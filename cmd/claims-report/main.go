// Command claims-report writes the monthly approved-claims workbook to the
// configured reports directory.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/claims-workflow/internal/config"
	"github.com/garyjia/claims-workflow/internal/container"
	"github.com/garyjia/claims-workflow/internal/domain/entity"
	"github.com/garyjia/claims-workflow/pkg/utils"
)

func main() {
	current := entity.PeriodOf(time.Now().UTC())

	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	month := flag.Int("month", current.Month, "report month (1-12)")
	year := flag.Int("year", current.Year, "report year")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	path, err := generate(context.Background(), cfg, logger, *month, *year)
	if err != nil {
		logger.Error("Failed to generate monthly report", zap.Error(err))
		os.Exit(1)
	}

	fmt.Println(filepath.Join(cfg.Storage.ReportsDir, path))
}

func generate(ctx context.Context, cfg *config.Config, logger *zap.Logger, month, year int) (string, error) {
	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		return "", err
	}
	if err := c.Start(ctx); err != nil {
		return "", err
	}
	defer c.Close()

	path, err := c.Services().Reports.SaveMonthlyReport(ctx, month, year)
	if err != nil {
		return "", err
	}

	logger.Info("Monthly report written",
		zap.Int("month", month),
		zap.Int("year", year),
		zap.String("path", path))
	return path, nil
}
