package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"socialfeed/api/handlers"
	"socialfeed/api/routes"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var flagNoWorkers bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API (and feed workers unless --no-workers)",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagNoWorkers, "no-workers", false, "do not start feed queue workers in this process")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if !flagNoWorkers {
		a.queue.StartWorkers(ctx)
	}
	if a.publisher != nil {
		if err := a.publisher.StartFeedEventConsumer(ctx, a.conf.RabbitMQ.Queue, a.ws); err != nil {
			a.logger.WithError(err).Warn("feed event consumer not started")
		}
	}

	router := gin.Default()
	routes.Setup(router, &handlers.Handler{
		Posts:   a.posts,
		Follows: a.follows,
		Users:   a.users,
		Engine:  a.engine,
		Queue:   a.queue,
		WS:      a.ws,
		Logger:  a.logger.WithField("component", "http"),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", a.conf.Backend.Host, a.conf.Backend.Port),
		Handler: router,
	}
	errCh := make(chan error, 1)
	go func() {
		a.logger.WithField("addr", srv.Addr).Info("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
