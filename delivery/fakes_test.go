package delivery

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fnklabs/monger-go/correlation"
	"github.com/fnklabs/monger-go/logger"
)

type fakeLogEntry struct {
	level  string
	msg    string
	fields map[string]any
	err    error
}

type fakeLogger struct {
	mu      sync.Mutex
	entries []fakeLogEntry
}

func (l *fakeLogger) event(level string) logger.LogEvent {
	return &fakeLogEvent{parent: l, entry: fakeLogEntry{level: level, fields: map[string]any{}}}
}

func (l *fakeLogger) Info() logger.LogEvent { return l.event("info") }
func (l *fakeLogger) Error() logger.LogEvent { return l.event("error") }
func (l *fakeLogger) Debug() logger.LogEvent { return l.event("debug") }
func (l *fakeLogger) Warn() logger.LogEvent { return l.event("warn") }
func (l *fakeLogger) Fatal() logger.LogEvent { return l.event("fatal") }
func (l *fakeLogger) WithContext(_ any) logger.Logger { return l }
func (l *fakeLogger) WithFields(_ map[string]any) logger.Logger { return l }

func (l *fakeLogger) eventsByLevel(level string) []fakeLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []fakeLogEntry
	for _, e := range l.entries {
		if e.level == level {
			out = append(out, e)
		}
	}
	return out
}

type fakeLogEvent struct {
	parent *fakeLogger
	entry  fakeLogEntry
}

func (e *fakeLogEvent) Msg(msg string) {
	e.entry.msg = msg
	e.parent.mu.Lock()
	e.parent.entries = append(e.parent.entries, e.entry)
	e.parent.mu.Unlock()
}

func (e *fakeLogEvent) Msgf(format string, v ...any) { e.Msg(fmt.Sprintf(format, v...)) }

func (e *fakeLogEvent) Err(err error) logger.LogEvent {
	e.entry.err = err
	return e
}

func (e *fakeLogEvent) set(key string, v any) logger.LogEvent {
	e.entry.fields[key] = v
	return e
}

func (e *fakeLogEvent) Str(key, val string) logger.LogEvent { return e.set(key, val) }
func (e *fakeLogEvent) Int(key string, val int) logger.LogEvent { return e.set(key, val) }
func (e *fakeLogEvent) Int64(key string, val int64) logger.LogEvent { return e.set(key, val) }
func (e *fakeLogEvent) Uint64(key string, val uint64) logger.LogEvent {
	return e.set(key, val)
}
func (e *fakeLogEvent) Dur(key string, val time.Duration) logger.LogEvent { return e.set(key, val) }
func (e *fakeLogEvent) Interface(key string, val any) logger.LogEvent { return e.set(key, val) }
func (e *fakeLogEvent) Bytes(key string, val []byte) logger.LogEvent { return e.set(key, string(val)) }

// call records one transport invocation.
type call struct {
	url       string
	headers   map[string]string
	body      []byte
	contextID string
}

// scriptedTransport replies with the scripted replies in order and repeats the last one.
type scriptedTransport struct {
	mu      sync.Mutex
	replies []scriptedReply
	calls   []call
}

type scriptedReply struct {
	body []byte
	err  error
}

func replyBody(s string) scriptedReply { return scriptedReply{body: []byte(s)} }
func replyErr(err error) scriptedReply { return scriptedReply{err: err} }

func newScriptedTransport(replies ...scriptedReply) *scriptedTransport {
	return &scriptedTransport{replies: replies}
}

func (s *scriptedTransport) Post(ctx context.Context, url string, headers map[string]string, body []byte) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, _ := correlation.IDFromContext(ctx)
	s.calls = append(s.calls, call{url: url, headers: headers, body: body, contextID: id})

	idx := len(s.calls) - 1
	if idx >= len(s.replies) {
		idx = len(s.replies) - 1
	}
	r := s.replies[idx]
	return r.body, r.err
}

func (s *scriptedTransport) recorded() []call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]call(nil), s.calls...)
}

func sequentialIDs(prefix string) (correlation.Generator, *int) {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}, &n
}
