package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/fnklabs/monger-go/correlation"
	obtest "github.com/fnklabs/monger-go/observability/testing"
)

const (
	testAddress = "https://x.test/api/user_event/new"
	testUser    = "user-token"
	testToken   = "access-token"
)

var testIdentity = Identity{User: testUser, Token: testToken}

func activityEnvelope() Envelope {
	return NewEnvelope(map[string]any{
		"clientId":           "customer-42",
		"action":             "login",
		"application":        "shop",
		"applicationVersion": "1.2.3",
	})
}

func decodeBody(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(body, &m))
	return m
}

func TestDeliverSucceedsOnFirstAttempt(t *testing.T) {
	transport := newScriptedTransport(replyBody(`{"status": true}`))
	log := &fakeLogger{}
	gen, generated := sequentialIDs("corr")

	p := New(testIdentity, transport, log, WithGenerator(gen))
	result := p.Deliver(context.Background(), testAddress, activityEnvelope())

	assert.Equal(t, Succeeded, result.State)
	assert.Equal(t, 1, result.Attempts)
	assert.Equal(t, "corr-1", result.CorrelationID)
	assert.Equal(t, testAddress, result.Address)
	assert.True(t, result.Last.IsSuccess())
	assert.Equal(t, 1, *generated)

	calls := transport.recorded()
	require.Len(t, calls, 1)
	assert.Equal(t, testAddress, calls[0].url)
	assert.Equal(t, map[string]string{"Content-type": "application/json", "Accept": "application/json"}, calls[0].headers)

	body := decodeBody(t, calls[0].body)
	assert.Equal(t, "corr-1", body["id"])
	assert.Equal(t, testUser, body["user"])
	assert.Equal(t, testToken, body["token"])
	assert.Equal(t, "customer-42", body["clientId"])
	assert.Equal(t, "login", body["action"])

	infos := log.eventsByLevel("info")
	require.Len(t, infos, 1)
	assert.Equal(t, "Request was successfully executed", infos[0].msg)
	assert.Equal(t, "corr-1", infos[0].fields["id"])
	assert.Empty(t, log.eventsByLevel("warn"))

	debugs := log.eventsByLevel("debug")
	require.Len(t, debugs, 1)
	assert.Equal(t, "Attempting request", debugs[0].msg)
	assert.Equal(t, testAddress, debugs[0].fields["address"])
}

func TestDeliverAcceptedOutcomeEndsInSucceededState(t *testing.T) {
	result := New(testIdentity, newScriptedTransport(replyBody(`{"status":true}`)), nil).
		Deliver(context.Background(), testAddress, activityEnvelope())

	assert.Equal(t, Accepted(), result.Last)
	assert.Equal(t, Succeeded, result.State)
	assert.Equal(t, "succeeded", result.State.String())
}

func TestDeliverRetriesUntilSuccess(t *testing.T) {
	transport := newScriptedTransport(
		replyBody(`{"status": false, "message": "bad token"}`),
		replyErr(errors.New("connection reset by peer")),
		replyBody(`not json`),
		replyBody(`{"status": true}`),
	)
	log := &fakeLogger{}

	result := New(testIdentity, transport, log).Deliver(context.Background(), testAddress, activityEnvelope())

	assert.Equal(t, Succeeded, result.State)
	assert.Equal(t, 4, result.Attempts)
	assert.Len(t, transport.recorded(), 4, "stops on first success")

	warns := log.eventsByLevel("warn")
	require.Len(t, warns, 3)
	assert.Equal(t, "bad token", warns[0].fields["message"])
	assert.Equal(t, 1, warns[0].fields["attempt"])
	assert.Nil(t, warns[0].err)

	assert.Equal(t, "connection reset by peer", warns[1].fields["message"])
	assert.EqualError(t, warns[1].err, "connection reset by peer")

	assert.Equal(t, UnexpectedBehaviour, warns[2].fields["message"])
	for _, w := range warns {
		assert.Equal(t, "Request execution problem", w.msg)
		assert.Equal(t, result.CorrelationID, w.fields["id"])
	}
	assert.Len(t, log.eventsByLevel("info"), 1)
}

func TestDeliverExhaustsAttemptBudget(t *testing.T) {
	tests := []struct {
		name        string
		reply       scriptedReply
		wantKind    OutcomeKind
		wantMessage string
	}{
		{name: "application failure", reply: replyBody(`{"status":false,"message":"bad token"}`), wantKind: ApplicationFailure, wantMessage: "bad token"},
		{name: "unexpected behaviour", reply: replyBody(`{}`), wantKind: ApplicationFailure, wantMessage: UnexpectedBehaviour},
		{name: "transport failure", reply: replyErr(errors.New("dial tcp: no route to host")), wantKind: TransportFailure, wantMessage: "dial tcp: no route to host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			transport := newScriptedTransport(tt.reply)
			log := &fakeLogger{}

			var result Result
			assert.NotPanics(t, func() {
				result = New(testIdentity, transport, log).Deliver(context.Background(), testAddress, activityEnvelope())
			})

			assert.Equal(t, Exhausted, result.State)
			assert.Equal(t, MaxAttempts, result.Attempts)
			assert.Equal(t, tt.wantKind, result.Last.Kind)
			assert.Equal(t, tt.wantMessage, result.Last.Message)
			assert.Len(t, transport.recorded(), MaxAttempts)
			assert.Len(t, log.eventsByLevel("warn"), MaxAttempts)
			assert.Len(t, log.eventsByLevel("debug"), MaxAttempts)
			assert.Empty(t, log.eventsByLevel("info"))
			assert.Empty(t, log.eventsByLevel("error"))
		})
	}
}

func TestDeliverKeepsCorrelationIDAcrossRetries(t *testing.T) {
	transport := newScriptedTransport(replyBody(`{"status":false}`))
	gen, generated := sequentialIDs("corr")

	result := New(testIdentity, transport, nil, WithGenerator(gen)).
		Deliver(context.Background(), testAddress, activityEnvelope())

	assert.Equal(t, 1, *generated, "id generated exactly once per call")

	calls := transport.recorded()
	require.Len(t, calls, MaxAttempts)
	first := calls[0].body
	for i, c := range calls {
		assert.Equal(t, "corr-1", decodeBody(t, c.body)["id"], "attempt %d", i+1)
		assert.Equal(t, string(first), string(c.body), "envelope unchanged across attempts")
		assert.Equal(t, "corr-1", c.contextID, "context carries the id for the transport")
	}
	assert.Equal(t, "corr-1", result.CorrelationID)
}

func TestDeliverGeneratesNewIDPerCall(t *testing.T) {
	transport := newScriptedTransport(replyBody(`{"status":true}`))
	p := New(testIdentity, transport, nil)

	first := p.Deliver(context.Background(), testAddress, activityEnvelope())
	second := p.Deliver(context.Background(), testAddress, activityEnvelope())

	assert.NotEmpty(t, first.CorrelationID)
	assert.NotEqual(t, first.CorrelationID, second.CorrelationID)
}

func TestDeliverCommonFieldsOverrideEventFields(t *testing.T) {
	transport := newScriptedTransport(replyBody(`{"status":true}`))
	env := NewEnvelope(map[string]any{"id": "spoofed", "user": "spoofed", "token": "spoofed", "action": "x"})

	result := New(testIdentity, transport, nil).Deliver(context.Background(), testAddress, env)

	body := decodeBody(t, transport.recorded()[0].body)
	assert.Equal(t, result.CorrelationID, body["id"])
	assert.Equal(t, testUser, body["user"])
	assert.Equal(t, testToken, body["token"])
	assert.Equal(t, "x", body["action"])

	assert.Equal(t, "spoofed", env.ID(), "caller envelope is not mutated")
}

func TestDeliverObserver(t *testing.T) {
	transport := newScriptedTransport(replyBody(`{"status":false,"message":"quota exceeded"}`))

	var observed []Result
	p := New(testIdentity, transport, nil,
		WithObserver(func(r Result) { observed = append(observed, r) }),
		WithMaxAttempts(2),
	)
	result := p.Deliver(context.Background(), testAddress, activityEnvelope())

	require.Len(t, observed, 1)
	assert.Equal(t, result, observed[0])
	assert.Equal(t, Exhausted, observed[0].State)
	assert.Equal(t, 2, observed[0].Attempts)
	assert.Equal(t, "quota exceeded", observed[0].Last.Message)
}

func TestDeliverCancelledContextStillTerminates(t *testing.T) {
	transport := TransportFunc(func(ctx context.Context, _ string, _ map[string]string, _ []byte) ([]byte, error) {
		return nil, ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(testIdentity, transport, nil).Deliver(ctx, testAddress, activityEnvelope())

	assert.Equal(t, Exhausted, result.State)
	assert.Equal(t, MaxAttempts, result.Attempts)
	assert.Equal(t, TransportFailure, result.Last.Kind)
	assert.ErrorIs(t, result.Last.Err, context.Canceled)
}

func TestDeliverUnencodableEnvelope(t *testing.T) {
	transport := newScriptedTransport(replyBody(`{"status":true}`))
	env := NewEnvelope(map[string]any{"callback": func() {}})

	result := New(testIdentity, transport, nil).Deliver(context.Background(), testAddress, env)

	assert.Equal(t, Exhausted, result.State)
	assert.Equal(t, MaxAttempts, result.Attempts)
	assert.Equal(t, TransportFailure, result.Last.Kind)
	assert.Empty(t, transport.recorded(), "nothing is sent")
}

func TestWithMaxAttemptsIgnoresNonPositive(t *testing.T) {
	p := New(testIdentity, newScriptedTransport(replyBody(`{}`)), nil, WithMaxAttempts(0), WithMaxAttempts(-3))
	assert.Equal(t, MaxAttempts, p.maxAttempts)
}

func TestWithGeneratorIgnoresNil(t *testing.T) {
	p := New(testIdentity, newScriptedTransport(replyBody(`{}`)), nil, WithGenerator(nil))
	require.NotNil(t, p.generate)
	assert.Len(t, p.generate(), 36)
}

func TestDeliverSpan(t *testing.T) {
	tp := obtest.NewTestTraceProvider()
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	t.Run("succeeded", func(t *testing.T) {
		tp.Exporter.Reset()
		transport := newScriptedTransport(replyBody(`{"status":true}`))
		result := New(testIdentity, transport, nil, WithTracerProvider(tp)).
			Deliver(context.Background(), testAddress, activityEnvelope())

		spans := tp.Spans(spanDeliver)
		require.Len(t, spans, 1)
		span := spans[0]
		assert.NotEqual(t, codes.Error, span.Status.Code)
		assertSpanAttr(t, span, attrCorrelationID, attribute.StringValue(result.CorrelationID))
		assertSpanAttr(t, span, attrURL, attribute.StringValue(testAddress))
		assertSpanAttr(t, span, attrAttempts, attribute.Int64Value(1))
	})

	t.Run("exhausted", func(t *testing.T) {
		tp.Exporter.Reset()
		transport := newScriptedTransport(replyBody(`{"status":false,"message":"bad token"}`))
		New(testIdentity, transport, nil, WithTracerProvider(tp)).
			Deliver(context.Background(), testAddress, activityEnvelope())

		spans := tp.Spans(spanDeliver)
		require.Len(t, spans, 1)
		span := spans[0]
		assert.Equal(t, codes.Error, span.Status.Code)
		assert.Equal(t, "bad token", span.Status.Description)
		assertSpanAttr(t, span, attrAttempts, attribute.Int64Value(MaxAttempts))
	})
}

func TestDeliverPropagatesCallerContextValues(t *testing.T) {
	type ctxKey struct{}
	var seen any
	transport := TransportFunc(func(ctx context.Context, _ string, _ map[string]string, _ []byte) ([]byte, error) {
		seen = ctx.Value(ctxKey{})
		id, ok := correlation.IDFromContext(ctx)
		assert.True(t, ok)
		assert.NotEmpty(t, id)
		return []byte(`{"status":true}`), nil
	})

	ctx := context.WithValue(context.Background(), ctxKey{}, "tenant-a")
	New(testIdentity, transport, nil).Deliver(ctx, testAddress, activityEnvelope())
	assert.Equal(t, "tenant-a", seen)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "succeeded", Succeeded.String())
	assert.Equal(t, "exhausted", Exhausted.String())
	assert.Equal(t, "attempting", State(0).String())
}

func assertSpanAttr(t *testing.T, span tracetest.SpanStub, key string, want attribute.Value) {
	t.Helper()
	got, ok := obtest.SpanAttribute(span, key)
	require.True(t, ok, "span attribute %q not found", key)
	assert.Equal(t, want, got)
}
