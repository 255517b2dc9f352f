// Package app собирает зависимости, общие для HTTP сервера и reviewctl.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ignatzorin/research-review/internal/config"
	"github.com/ignatzorin/research-review/internal/db"
	"github.com/ignatzorin/research-review/internal/domain/repository"
	domainsvc "github.com/ignatzorin/research-review/internal/domain/service"
	"github.com/ignatzorin/research-review/internal/infrastructure/memory"
	"github.com/ignatzorin/research-review/internal/infrastructure/persistence"
	"github.com/ignatzorin/research-review/internal/logger"
	"github.com/ignatzorin/research-review/internal/usecase/proposal"
	"github.com/ignatzorin/research-review/migrations"
)

// Stores: репозитории выбранного STORAGE_DRIVER.
type Stores struct {
	Proposals     repository.ProposalRepository
	Evaluators    repository.EvaluatorRepository
	Notifications repository.NotificationRepository
	// DB равен nil для memory.
	DB *sqlx.DB
}

// OpenStores подключает хранилище. Для postgres при migrate=true
// применяет встроенные миграции.
func OpenStores(ctx context.Context, cfg *config.Config, migrate bool) (*Stores, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		store := memory.NewStore()
		logger.Component("app").Warn("используется хранилище в памяти, данные не сохраняются")
		return &Stores{
			Proposals:     store.Proposals(),
			Evaluators:    store.Evaluators(),
			Notifications: store.Notifications(),
		}, nil
	}

	conn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if migrate {
		if _, err := Migrate(ctx, conn); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return &Stores{
		Proposals:     persistence.NewProposalRepositoryAdapter(conn),
		Evaluators:    persistence.NewEvaluatorRepositoryAdapter(conn),
		Notifications: persistence.NewNotificationRepositoryAdapter(conn),
		DB:            conn,
	}, nil
}

func Migrate(ctx context.Context, conn *sqlx.DB) ([]string, error) {
	applied, err := db.RunMigrations(ctx, conn, migrations.FS)
	if err != nil {
		return nil, fmt.Errorf("app: миграции: %w", err)
	}
	for _, name := range applied {
		logger.Component("app").WithField("migration", name).Info("migration applied")
	}
	return applied, nil
}

func (s *Stores) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

// NewProposalUseCases связывает операции над заявками с политикой процесса.
func NewProposalUseCases(policy config.WorkflowPolicy, stores *Stores, publisher repository.EventPublisher, metrics proposal.Metrics, now proposal.Clock) (*proposal.UseCases, error) {
	revisions, err := policy.RevisionManager()
	if err != nil {
		return nil, err
	}
	if now == nil {
		now = time.Now
	}
	return proposal.NewUseCases(proposal.Dependencies{
		Proposals:  stores.Proposals,
		Evaluators: stores.Evaluators,
		Publisher:  publisher,
		Metrics:    metrics,
		Clock:      now,
		Revisions:  revisions,
		Engine:     domainsvc.NewAssignmentEngine(policy.AssignmentPolicy()),
	}), nil
}
