// reviewctl: служебные команды процесса рассмотрения заявок.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ignatzorin/research-review/internal/config"
	"github.com/ignatzorin/research-review/internal/logger"
)

var version = "0.1.0"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(config.Load).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

type configLoader func() (*config.Config, error)

func newRootCmd(load configLoader) *cobra.Command {
	var logLevel string

	root := &cobra.Command{
		Use:           "reviewctl",
		Short:         "Обслуживание процесса рассмотрения научных заявок",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logger.Init(logLevel)
			logger.SetTextFormatter()
			logger.Log.SetOutput(cmd.ErrOrStderr())
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Уровень логов (debug, info, warn, error)")

	root.AddCommand(migrateCmd(load))
	root.AddCommand(sweepCmd(load))
	root.AddCommand(tokenCmd(load))
	return root
}
