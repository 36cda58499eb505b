package commands

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"storybot/handoff"
	"storybot/selection"
	"storybot/types"

	"github.com/spf13/cobra"
)

// NewListenCmd creates the listen command
func NewListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Start runs from Kafka run requests",
		Long: `Consume run requests from KAFKA_RUN_TOPIC and start a run for each.

A request may override the subreddits, post ids, keywords and number of
iterations of the constraints file. Requests arriving while a run is in
progress are dropped.`,
		RunE: runListen,
	}
}

func runListen(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	consumer, err := handoff.NewConsumer(handoff.ConsumerConfig{
		Brokers: a.settings.KafkaBrokers,
		Topic:   a.settings.RunRequestTopic,
		GroupID: a.settings.KafkaGroupID,
		Handler: handoff.RunRequestHandler(a.handleRunRequest),
	})
	if err != nil {
		return err
	}
	defer consumer.Close()

	if err := consumer.Start(ctx); err != nil {
		return err
	}
	log.Printf("👂 Listening for run requests on %s", a.settings.RunRequestTopic)

	<-ctx.Done()
	log.Println("Received shutdown signal")
	return nil
}

func (a *app) handleRunRequest(ctx context.Context, req *types.RunRequest) error {
	cs, err := a.loadConstraints()
	if err != nil {
		return fmt.Errorf("load constraints: %w", err)
	}
	cs, err = cs.Override(req.Subreddits, req.PostIDs, req.Keywords, req.TimesToRun)
	if err != nil {
		return err
	}

	log.Printf("▶️  Run request %s received", req.RequestID)
	res, err := a.ctrl.Run(ctx, cs)
	if errors.Is(err, selection.ErrBusy) {
		log.Printf("⏭️  Run request %s dropped: a run is in progress", req.RequestID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("run %s: %w", req.RequestID, err)
	}
	log.Printf("✅ Run request %s finished: %d selected, %d failed iterations",
		req.RequestID, len(res.Selections), len(res.Failures))
	return nil
}
