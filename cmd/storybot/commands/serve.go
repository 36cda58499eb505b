package commands

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storybot/api"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

// NewServeCmd creates the serve command
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and run on a schedule",
		Long: `Start the HTTP API (status, run trigger, ledger lookups).

When CRON_SCHEDULE is set, runs are also started on that schedule. The
constraints file is re-read for every run.`,
		RunE: runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	server := api.NewServer(a.ctrl, a.loadConstraints, a.settings.Port)
	if a.settings.CronSchedule != "" {
		if err := server.StartCron(a.settings.CronSchedule); err != nil {
			return err
		}
	}
	if err := server.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	log.Println("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
