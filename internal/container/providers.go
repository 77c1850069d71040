package container

import (
	"fmt"

	"github.com/garyjia/claims-workflow/internal/application/dispatcher"
	"github.com/garyjia/claims-workflow/internal/application/policy"
	"github.com/garyjia/claims-workflow/internal/application/port"
	"github.com/garyjia/claims-workflow/internal/application/service"
	"github.com/garyjia/claims-workflow/internal/application/validation"
	"github.com/garyjia/claims-workflow/internal/application/workflow"
	"github.com/garyjia/claims-workflow/internal/infrastructure/document"
	infraLark "github.com/garyjia/claims-workflow/internal/infrastructure/external/lark"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/claims-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/claims-workflow/internal/infrastructure/report"
	"github.com/garyjia/claims-workflow/internal/infrastructure/storage"
	"github.com/garyjia/claims-workflow/migrations"
	"github.com/garyjia/claims-workflow/pkg/database"
	"go.uber.org/zap"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	DB             *database.DB
	TransactionMgr *sqlite.DB
}

// StorageBundle holds file-backed components.
type StorageBundle struct {
	Documents port.FileStorage
	// Reports is nil when no reports directory is configured
	Reports   port.FileStorage
	Inspector port.DocumentInspector
	Renderer  port.ReportRenderer
}

// ProvideDatabase opens the database, applies pending migrations and wraps
// the connection in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(db, logger).RunMigrations(migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		DB:             db,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(db *database.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Claim:    repository.NewClaimRepository(db.DB, logger),
		Workflow: repository.NewWorkflowRepository(db.DB, logger),
		History:  repository.NewHistoryRepository(db.DB, logger),
		Lecturer: repository.NewLecturerRepository(db.DB, logger),
	}, nil
}

// ProvideStorage creates document and report storage plus the components
// that read and write files through them.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (*StorageBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	documents := storage.NewLocalFileStorage(cfg.DocumentsDir, logger)
	bundle := &StorageBundle{
		Documents: documents,
		Inspector: document.NewInspector(documents, logger),
		Renderer:  report.NewXLSXRenderer(logger),
	}
	if cfg.ReportsDir != "" {
		bundle.Reports = storage.NewLocalFileStorage(cfg.ReportsDir, logger)
	}

	return bundle, nil
}

// ProvideMessageSender returns a Lark messenger, or a no-op sender when
// credentials are not configured.
func ProvideMessageSender(cfg *LarkConfig, logger *zap.Logger) port.MessageSender {
	if cfg.AppID == "" || cfg.AppSecret == "" {
		logger.Info("Lark credentials not configured, notifications disabled")
	}
	return infraLark.NewMessageSender(infraLark.Config{
		AppID:     cfg.AppID,
		AppSecret: cfg.AppSecret,
	}, logger)
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(cfg *DispatcherConfig, logger *zap.Logger) dispatcher.Dispatcher {
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(NewZapLoggerAdapter(logger.Named("dispatcher"))),
		dispatcher.WithHandlerTimeout(cfg.HandlerTimeout),
	)
}

// WorkflowDeps holds dependencies for the workflow engine.
type WorkflowDeps struct {
	Policy     policy.Policies
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Logger     *zap.Logger
}

// ProvideWorkflowEngine builds the policy provider, the claim validator and
// the engine on top of them.
func ProvideWorkflowEngine(deps *WorkflowDeps) (policy.Provider, workflow.WorkflowEngine, error) {
	if deps == nil || deps.Repos == nil {
		return nil, nil, fmt.Errorf("workflow dependencies are required")
	}
	if err := deps.Policy.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid policy: %w", err)
	}

	provider := policy.NewStaticProvider(deps.Policy, deps.Repos.Claim)
	validator := validation.NewClaimValidator(provider)

	engine := workflow.NewEngine(
		deps.Repos.Claim,
		deps.Repos.Workflow,
		deps.Repos.History,
		validator,
		deps.TxManager,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(NewZapLoggerAdapter(deps.Logger.Named("workflow"))),
	)

	return provider, engine, nil
}

// ServiceDeps holds dependencies for application services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Engine     workflow.WorkflowEngine
	Storage    *StorageBundle
	Sender     port.MessageSender
	Dispatcher dispatcher.Dispatcher
	Lark       *LarkConfig
	Logger     *zap.Logger
}

// ProvideServices creates the application services and subscribes the
// notification service to workflow events.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil || deps.Repos == nil || deps.Storage == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}

	logger := NewZapLoggerAdapter(deps.Logger.Named("service"))

	claims := service.NewClaimService(
		deps.Repos.Claim,
		deps.Repos.Lecturer,
		deps.Engine,
		deps.Storage.Inspector,
		deps.TxManager,
		logger,
	)

	reports := service.NewReportService(
		deps.Repos.Claim,
		deps.Repos.Lecturer,
		deps.Storage.Renderer,
		deps.Storage.Reports,
		logger,
	)

	notifications := service.NewNotificationService(
		deps.Sender,
		deps.Repos.Lecturer,
		service.NotificationConfig{
			CoordinatorChatID: deps.Lark.CoordinatorChatID,
			ManagerChatID:     deps.Lark.ManagerChatID,
			FinanceChatID:     deps.Lark.FinanceChatID,
		},
		logger,
	)
	if deps.Dispatcher != nil {
		notifications.Register(deps.Dispatcher)
	}

	return &ServiceBundle{
		Claims:        claims,
		Reports:       reports,
		Notifications: notifications,
	}, nil
}
