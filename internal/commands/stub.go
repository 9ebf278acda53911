package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fnklabs/monger-go/config"
	"github.com/fnklabs/monger-go/logger"
	"github.com/fnklabs/monger-go/mongertest"
)

// DefaultStubAddress is where the stub listens when --listen is not given
const DefaultStubAddress = ":8089"

type stubOptions struct {
	listen      string
	failures    int
	accessToken string
}

// NewStubCommand creates the stub command
func NewStubCommand(global *GlobalOptions) *cobra.Command {
	opts := &stubOptions{}

	cmd := &cobra.Command{
		Use:   "stub",
		Short: "Run a local Monger service stub",
		Long: `Serves the Monger event endpoints locally and logs every received envelope.
All requests are accepted except the first --fail ones, which are rejected.`,
		Example: `  monger stub --listen :8089 --fail 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			level := global.LogLevel
			if level == "" {
				level = config.Default().Log.Level
			}
			return runStub(ctx, opts, logger.NewWithWriter(cmd.ErrOrStderr(), level, false))
		},
	}

	cmd.Flags().StringVar(&opts.listen, "listen", DefaultStubAddress, "Listen address")
	cmd.Flags().IntVar(&opts.failures, "fail", 0, "Number of initial requests to reject")
	cmd.Flags().StringVar(&opts.accessToken, "access-token", "", "Reject envelopes carrying a different access token")

	return cmd
}

// runStub serves until ctx is done
func runStub(ctx context.Context, opts *stubOptions, log logger.Logger) error {
	stubOpts := []mongertest.Option{
		mongertest.WithLogger(log),
		mongertest.WithFailures(opts.failures),
	}
	if opts.accessToken != "" {
		stubOpts = append(stubOpts, mongertest.WithAccessToken(opts.accessToken))
	}
	stub := mongertest.NewStub(stubOpts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return stub.Start(opts.listen)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return stub.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info().Msg("Monger stub stopped")
	return nil
}
