// Package natsutil provides typed NATS publish/subscribe helpers with
// OpenTelemetry trace propagation.
package natsutil

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
)

// natsHeaderCarrier adapts nats.Msg headers for OTel TextMapCarrier.
type natsHeaderCarrier nats.Msg

func (c *natsHeaderCarrier) Get(key string) string {
	if c.Header == nil {
		return ""
	}
	return c.Header.Get(key)
}

func (c *natsHeaderCarrier) Set(key, val string) {
	if c.Header == nil {
		c.Header = make(nats.Header)
	}
	c.Header.Set(key, val)
}

func (c *natsHeaderCarrier) Keys() []string {
	if c.Header == nil {
		return nil
	}
	keys := make([]string, 0, len(c.Header))
	for k := range c.Header {
		keys = append(keys, k)
	}
	return keys
}

// Publisher is the part of *nats.Conn used to publish.
type Publisher interface {
	PublishMsg(msg *nats.Msg) error
}

// NewMsg serializes v as JSON into a message for subject, injecting the
// trace context from ctx into its headers.
func NewMsg[T any](ctx context.Context, subject string, v T) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	msg := &nats.Msg{
		Subject: subject,
		Data:    data,
	}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return msg, nil
}

// Publish serializes v as JSON and publishes it to subject.
func Publish[T any](ctx context.Context, p Publisher, subject string, v T) error {
	msg, err := NewMsg(ctx, subject, v)
	if err != nil {
		return err
	}
	return p.PublishMsg(msg)
}

// Handler returns a message handler that decodes JSON into T and calls fn
// with the trace context extracted from the headers. Malformed messages are
// logged and dropped.
func Handler[T any](logger *slog.Logger, fn func(context.Context, T)) nats.MsgHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			logger.Warn("nats: dropping malformed message", "subject", msg.Subject, "error", err)
			return
		}
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		fn(ctx, v)
	}
}

// Subscribe registers a typed handler on subject.
func Subscribe[T any](nc *nats.Conn, subject string, logger *slog.Logger, fn func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, Handler(logger, fn))
}

// QueueSubscribe registers a typed handler on subject in queue group queue,
// so that each message goes to one member of the group.
func QueueSubscribe[T any](nc *nats.Conn, subject, queue string, logger *slog.Logger, fn func(context.Context, T)) (*nats.Subscription, error) {
	return nc.QueueSubscribe(subject, queue, Handler(logger, fn))
}
