package main

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ignatzorin/research-review/internal/app"
	"github.com/ignatzorin/research-review/internal/config"
	"github.com/ignatzorin/research-review/internal/db"
	"github.com/ignatzorin/research-review/internal/domain/entity"
	"github.com/ignatzorin/research-review/internal/domain/valueobject"
	"github.com/ignatzorin/research-review/internal/events"
	"github.com/ignatzorin/research-review/internal/logger"
	"github.com/ignatzorin/research-review/internal/service"
	"github.com/ignatzorin/research-review/internal/usecase/proposal"
)

func migrateCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Применить встроенные SQL миграции",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.StorageDriver != config.StorageDriverPostgres {
				return fmt.Errorf("migrate: нужен STORAGE_DRIVER=postgres, сейчас %q", cfg.StorageDriver)
			}

			conn, err := db.NewPostgres(cmd.Context(), cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer conn.Close()

			applied, err := app.Migrate(cmd.Context(), conn)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "миграции уже применены")
				return nil
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "применена %s\n", name)
			}
			return nil
		},
	}
}

func sweepCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Плановые проверки сроков (запускаются внешним планировщиком)",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "revisions",
		Short: "Закрыть доработки с истёкшим сроком",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, load, func(uc *proposal.UseCases) sweepFunc { return uc.ExpireRevisions.Execute })
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "assignments",
		Short: "Пометить просроченные назначения экспертов",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSweep(cmd, load, func(uc *proposal.UseCases) sweepFunc { return uc.MarkOverdue.Execute })
		},
	})
	return cmd
}

type sweepFunc func(ctx context.Context, actor entity.Actor) (*proposal.SweepResult, error)

func runSweep(cmd *cobra.Command, load configLoader, pick func(*proposal.UseCases) sweepFunc) error {
	ctx := cmd.Context()
	cfg, err := load()
	if err != nil {
		return err
	}
	policy, err := config.LoadWorkflowPolicy(cfg.WorkflowPolicyPath)
	if err != nil {
		return err
	}

	stores, err := app.OpenStores(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer stores.Close()

	sinks := []events.Sink{
		events.NewAuditSink(logger.Component("audit")),
		events.NewNotificationSink(service.NewNotificationService(stores.Notifications)),
	}
	if cfg.NATSURL != "" {
		nc, err := events.ConnectNATS(ctx, cfg.NATSURL, cfg.NATSSubjectPrefix)
		if err != nil {
			return err
		}
		defer nc.Close()
		sinks = append(sinks, events.NewNATSSink(nc.JetStream(), cfg.NATSSubjectPrefix))
	}
	dispatcher := events.NewDispatcher(nil, sinks...)

	uc, err := app.NewProposalUseCases(policy, stores, dispatcher, nil, time.Now)
	if err != nil {
		return err
	}

	result, err := pick(uc)(ctx, entity.SystemActor())
	dispatcher.Wait()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "обработано заявок: %d, событий: %d, конфликтов: %d\n", len(result.ProposalIDs), len(result.Events), result.Failed)
	for _, id := range result.ProposalIDs {
		fmt.Fprintln(cmd.OutOrStdout(), id)
	}
	return nil
}

func tokenCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Access токены для разработки",
	}

	var (
		rawID   string
		rawRole string
	)
	issue := &cobra.Command{
		Use:   "issue",
		Short: "Выпустить access токен для участника",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}

			id := uuid.New()
			if rawID != "" {
				if id, err = uuid.Parse(rawID); err != nil {
					return fmt.Errorf("token: некорректный --id: %w", err)
				}
			}
			role, err := valueobject.NewRole(rawRole)
			if err != nil {
				return err
			}

			token, exp, err := service.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTL).GenerateAccess(entity.Actor{ID: id, Role: role})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "actor %s (%s), действует до %s\n", id, role, exp.Format(time.RFC3339))
			return nil
		},
	}
	issue.Flags().StringVar(&rawID, "id", "", "ID участника (по умолчанию новый UUID)")
	issue.Flags().StringVar(&rawRole, "role", "", "Роль участника")
	_ = issue.MarkFlagRequired("role")

	cmd.AddCommand(issue)
	return cmd
}
