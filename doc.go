// Package monger reports customer activity, registrations and payments to a
// Monger analytics service.
//
// # Basic Usage
//
//	cfg, err := config.Load(config.WithOptionalFile("monger.yaml"))
//	if err != nil {
//	    return err
//	}
//	client, err := monger.New(*cfg, logger.New(cfg.Log.Level, cfg.Log.Pretty))
//	if err != nil {
//	    return err
//	}
//
//	client.ReportActivity(ctx, monger.Activity{CustomerID: "42", Action: "login"})
//
// # Delivery
//
// Every report is a single JSON POST identified by a fresh correlation id.
// A rejected or failed request is retried immediately, up to
// [delivery.MaxAttempts] times, with the same id. Reporting never returns an
// error and never panics on delivery failure: outcomes are logged, and callers
// that need confirmation register an observer with [WithObserver].
//
// # Observability
//
// Delivery attempts, results and durations are recorded as OpenTelemetry
// metrics, and each report is wrapped in a span. Both use the global providers
// unless [WithMeterProvider] or [WithTracerProvider] is given.
package monger
