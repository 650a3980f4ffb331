package natsutil

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

type testMsg struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

type fakePublisher struct {
	msgs []*nats.Msg
	err  error
}

func (f *fakePublisher) PublishMsg(msg *nats.Msg) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func tracedContext(t *testing.T) (context.Context, trace.SpanContext) {
	t.Helper()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	tid, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	sid, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    tid,
		SpanID:     sid,
		TraceFlags: trace.FlagsSampled,
	})
	return trace.ContextWithSpanContext(context.Background(), sc), sc
}

func TestNatsHeaderCarrier(t *testing.T) {
	msg := &nats.Msg{}
	carrier := (*natsHeaderCarrier)(msg)

	carrier.Set("traceparent", "00-abc-def-01")
	if got := carrier.Get("traceparent"); got != "00-abc-def-01" {
		t.Fatalf("expected traceparent, got %q", got)
	}
	if keys := carrier.Keys(); len(keys) != 1 {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestNatsHeaderCarrierNilHeader(t *testing.T) {
	carrier := (*natsHeaderCarrier)(&nats.Msg{})
	if got := carrier.Get("missing"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
	if keys := carrier.Keys(); keys != nil {
		t.Fatalf("expected nil keys, got %v", keys)
	}
}

func TestPublish_InjectsTraceContext(t *testing.T) {
	ctx, _ := tracedContext(t)
	pub := &fakePublisher{}

	if err := Publish(ctx, pub, "papers.fetched", testMsg{Name: "a", Value: 1}); err != nil {
		t.Fatal(err)
	}
	if len(pub.msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(pub.msgs))
	}
	msg := pub.msgs[0]
	if msg.Subject != "papers.fetched" || string(msg.Data) != `{"name":"a","value":1}` {
		t.Fatalf("unexpected message %s %s", msg.Subject, msg.Data)
	}
	want := "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01"
	if got := msg.Header.Get("traceparent"); got != want {
		t.Fatalf("traceparent = %q", got)
	}
}

func TestPublish_Errors(t *testing.T) {
	boom := errors.New("closed")
	if err := Publish(context.Background(), &fakePublisher{err: boom}, "s", testMsg{}); !errors.Is(err, boom) {
		t.Fatalf("expected publish error, got %v", err)
	}
	if err := Publish(context.Background(), &fakePublisher{}, "s", make(chan int)); err == nil {
		t.Fatal("expected marshal error")
	}
}

func TestHandler_RoundTrip(t *testing.T) {
	ctx, sc := tracedContext(t)
	msg, err := NewMsg(ctx, "s", testMsg{Name: "b", Value: 2})
	if err != nil {
		t.Fatal(err)
	}

	var (
		got    testMsg
		gotCtx context.Context
	)
	Handler(nil, func(ctx context.Context, m testMsg) {
		got, gotCtx = m, ctx
	})(msg)

	if got != (testMsg{Name: "b", Value: 2}) {
		t.Fatalf("decoded %+v", got)
	}
	if remote := trace.SpanContextFromContext(gotCtx); remote.TraceID() != sc.TraceID() {
		t.Fatalf("trace id not propagated: %v", remote.TraceID())
	}
}

func TestHandler_DropsMalformed(t *testing.T) {
	called := false
	Handler(nil, func(context.Context, testMsg) { called = true })(&nats.Msg{Subject: "s", Data: []byte("{not json")})
	if called {
		t.Fatal("handler must not run for malformed data")
	}
}
