package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"github.com/nguyentranbao-ct/chat-client/internal/app"
	"github.com/nguyentranbao-ct/chat-client/internal/config"
	"github.com/nguyentranbao-ct/chat-client/internal/server"
)

var rootCmd = &cobra.Command{
	Use:           "chat-client",
	Short:         "Polling chat client with a local view bridge",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the local view bridge HTTP server",
	Run: func(cmd *cobra.Command, args []string) {
		app.Invoke(server.StartServer).Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, loginCmd, tailCmd, historyCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// runWith starts the application graph, fills targets, calls fn and stops
// the graph again. fn's context is cancelled on SIGINT or SIGTERM.
func runWith(fn func(ctx context.Context) error, targets ...any) error {
	conf, err := config.Load()
	if err != nil {
		return err
	}
	log, err := app.NewLogger(conf.Log)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fxApp := fx.New(
		app.Options(conf, log),
		fx.Populate(targets...),
	)
	if err := fxApp.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), fx.DefaultTimeout)
		defer cancel()
		if err := fxApp.Stop(stopCtx); err != nil {
			log.Named("cmd").Warnw("Failed to stop cleanly", "error", err)
		}
	}()

	return fn(ctx)
}
