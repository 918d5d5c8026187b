package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/api/middleware"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/config"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/database"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/functions"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/functions/ai"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/functions/ocr"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/mailbox"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/mailer"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/pkg/logger"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/services"
	"github.com/Aman-Khan/AI-Powered-RFP-Management-System/internal/storage"
	"gorm.io/gorm"
)

// application holds the wired components. Commands build only the parts they need.
type application struct {
	cfg   *config.Config
	db    *gorm.DB
	store *services.GormStore
	logs  *services.LogService

	files     storage.Store
	processor *functions.Processor
	sync      *services.SyncService
	scheduler *services.SyncScheduler
	outbound  *services.OutboundService

	closers []func()
}

// openApp opens the database and the audit log
func openApp(cfg *config.Config) (*application, error) {
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	db, err := database.Initialize(database.Options{
		Driver: cfg.DatabaseDriver,
		Path:   cfg.DatabasePath,
		DSN:    cfg.DatabaseDSN,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}

	a := &application{
		cfg:   cfg,
		db:    db,
		store: services.NewGormStore(db),
		logs:  services.NewLogServiceWithLevel(db, cfg.LogLevel),
	}
	a.closers = append(a.closers, func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return a, nil
}

// Close releases everything opened by the application, newest first
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// buildProcessor wires OCR and the language model. No api key means local extraction only.
func buildProcessor(cfg *config.Config) (*functions.Processor, error) {
	engine, err := ocr.New(cfg.OCR)
	if err != nil {
		return nil, err
	}

	var llm ai.Provider
	if cfg.LLM.APIKey != "" {
		if llm, err = ai.NewProvider(cfg.LLM); err != nil {
			return nil, err
		}
	}
	return functions.NewProcessor(llm, engine, cfg.LLM.Timeout).WithOCRTimeout(cfg.OCR.Timeout), nil
}

// buildPipeline wires the ingestion cycle, its scheduler and the outbound flow
func (a *application) buildPipeline(ctx context.Context) error {
	cfg := a.cfg

	files, err := storage.New(ctx, cfg.Storage, cfg.AttachmentsDir())
	if err != nil {
		return fmt.Errorf("initialize attachment storage: %w", err)
	}
	a.files = files

	if a.processor, err = buildProcessor(cfg); err != nil {
		return fmt.Errorf("initialize extractor: %w", err)
	}
	logger.Info(ctx, "extractor ready", "mode", a.processor.Mode(), "ocr", cfg.OCR.Provider, "llm", cfg.LLM.Provider)

	gateway, err := mailbox.New(ctx, cfg.Mailbox)
	if err != nil {
		if errors.Is(err, mailbox.ErrUnsupportedProvider) {
			return err
		}
		logger.Warn(ctx, "mailbox unavailable, sync cycles will report fetch errors", "provider", cfg.Mailbox.Provider, "error", err)
		gateway = mailbox.Unavailable{Err: err}
	}

	a.sync = services.NewSyncService(gateway, a.store, functions.NewRouter(a.processor), files, a.logs, services.SyncOptions{
		Window:      cfg.Sync.Window,
		IncludeRead: cfg.Sync.IncludeRead,
	})
	if cfg.Redis.Addr != "" {
		lock, err := services.NewRedisLock(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.LockTTL)
		if err != nil {
			logger.Warn(ctx, "redis lock disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			a.sync.WithLock(lock)
			a.closers = append(a.closers, func() { lock.Close() })
		}
	}

	a.scheduler = services.NewSyncScheduler(a.sync, cfg.Sync.Interval, cfg.Sync.StartDelay)
	a.outbound = services.NewOutboundService(a.store, mailer.NewSMTPSender(cfg.SMTP), a.logs)
	return nil
}

// apiKeys loads the key guarding the HTTP API
func apiKeys(cfg *config.Config) (*middleware.APIKeyManager, error) {
	return middleware.NewAPIKeyManager(cfg.DataDir, cfg.APIKey)
}
