package cmd

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run feed queue workers only",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		a, err := buildApp(ctx, true)
		if err != nil {
			return err
		}
		defer a.Close()

		a.queue.StartWorkers(ctx)
		a.logger.WithField("workers", a.queue.Workers()).Info("feed workers running")
		<-ctx.Done()
		return nil
	},
}
