package logger

import "time"

// Nop returns a Logger that discards everything.
func Nop() Logger { return nopLogger{} }

type nopLogger struct{}

func (nopLogger) Info() LogEvent { return nopEvent{} }
func (nopLogger) Error() LogEvent { return nopEvent{} }
func (nopLogger) Debug() LogEvent { return nopEvent{} }
func (nopLogger) Warn() LogEvent { return nopEvent{} }
func (nopLogger) Fatal() LogEvent { return nopEvent{} }
func (n nopLogger) WithContext(_ any) Logger { return n }
func (n nopLogger) WithFields(_ map[string]any) Logger { return n }

type nopEvent struct{}

func (nopEvent) Msg(_ string) {}
func (nopEvent) Msgf(_ string, _ ...any) {}
func (e nopEvent) Err(_ error) LogEvent { return e }
func (e nopEvent) Str(_, _ string) LogEvent { return e }
func (e nopEvent) Int(_ string, _ int) LogEvent { return e }
func (e nopEvent) Int64(_ string, _ int64) LogEvent { return e }
func (e nopEvent) Uint64(_ string, _ uint64) LogEvent { return e }
func (e nopEvent) Dur(_ string, _ time.Duration) LogEvent { return e }
func (e nopEvent) Interface(_ string, _ any) LogEvent { return e }
func (e nopEvent) Bytes(_ string, _ []byte) LogEvent { return e }
