// Package commands implements the monger command line: one subcommand per
// event kind, a local stub service and version information.
package commands

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	monger "github.com/fnklabs/monger-go"
	"github.com/fnklabs/monger-go/config"
	"github.com/fnklabs/monger-go/delivery"
	"github.com/fnklabs/monger-go/logger"
	"github.com/fnklabs/monger-go/observability"
)

const defaultServiceName = "monger"

// GlobalOptions holds the flags shared by every subcommand
type GlobalOptions struct {
	ConfigFile string
	LogLevel   string
	Version    string
}

// NewRootCommand creates the monger command with all subcommands attached
func NewRootCommand(version string) *cobra.Command {
	opts := &GlobalOptions{Version: version}

	cmd := &cobra.Command{
		Use:   "monger",
		Short: "Report analytics events to a Monger service",
		Long: `Sends activity, customer and payment events to a Monger analytics service.

Configuration is read from an optional YAML file and MONGER_ prefixed
environment variables, e.g. MONGER_SERVICE_ADDRESS and MONGER_SERVICE_ACCESSTOKEN.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigFile, "config", "c", "", "YAML configuration file")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "Log level override (debug, info, warn, error)")

	cmd.AddCommand(
		NewActivityCommand(opts),
		NewCustomerCommand(opts),
		NewPaymentCommand(opts),
		NewStubCommand(opts),
		NewVersionCommand(version),
	)
	return cmd
}

// loadConfig reads the configuration honouring --config and --log-level
func (o *GlobalOptions) loadConfig() (*config.Config, error) {
	var loadOpts []config.LoadOption
	if o.ConfigFile != "" {
		loadOpts = append(loadOpts, config.WithFile(o.ConfigFile))
	}
	cfg, err := config.Load(loadOpts...)
	if err != nil {
		return nil, err
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
		if err := config.Validate(cfg); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// report builds a client from the configuration, runs send and prints the
// delivery result to out. Exhausted deliveries are not an error.
func (o *GlobalOptions) report(ctx context.Context, out, errOut io.Writer, send func(context.Context, *monger.Client)) error {
	cfg, err := o.loadConfig()
	if err != nil {
		return err
	}
	log := logger.NewWithWriter(errOut, cfg.Log.Level, cfg.Log.Pretty)

	service := observability.Service{Name: cfg.App.Name, Version: o.Version}
	if service.Name == "" {
		service.Name = defaultServiceName
	}
	provider, err := observability.NewProvider(cfg.Observability, service, observability.WithLogger(log))
	if err != nil {
		return err
	}
	defer func() {
		if err := observability.Shutdown(provider, 5*time.Second); err != nil {
			log.Warn().Err(err).Msg("Failed to flush telemetry")
		}
	}()

	client, err := monger.New(*cfg, log,
		monger.WithObserver(func(r delivery.Result) { printResult(out, r) }),
		monger.WithMeterProvider(provider.MeterProvider()),
		monger.WithTracerProvider(provider.TracerProvider()),
	)
	if err != nil {
		return err
	}

	send(ctx, client)
	return nil
}

func printResult(out io.Writer, r delivery.Result) {
	fmt.Fprintf(out, "%s %s attempts=%d id=%s", r.State, r.Address, r.Attempts, r.CorrelationID)
	if !r.Last.IsSuccess() {
		fmt.Fprintf(out, " last=%q", r.Last.Message)
	}
	fmt.Fprintln(out)
}

// parseTime parses an optional RFC 3339 flag value; empty yields the zero time
func parseTime(flag, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --%s %q: expected RFC 3339 time", flag, value)
	}
	return t, nil
}
