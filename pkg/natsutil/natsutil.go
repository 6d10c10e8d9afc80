// Package natsutil provides typed JSON request/reply and publish helpers over
// NATS, carrying OpenTelemetry trace context in message headers.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

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

// ErrorReply is the body sent back when a request cannot be served.
type ErrorReply struct {
	Error string `json:"error"`
}

// ReplyError is returned by Request when the responder sent an ErrorReply.
type ReplyError struct {
	Subject string
	Message string
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("natsutil: %s: %s", e.Subject, e.Message)
}

func newMsg(ctx context.Context, subject string, v any) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("natsutil: marshal %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return msg, nil
}

// Publish sends v as JSON on subject.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	msg, err := newMsg(ctx, subject, v)
	if err != nil {
		return err
	}
	return nc.PublishMsg(msg)
}

// Handler serves one decoded request.
type Handler[Req, Resp any] func(context.Context, Req) (Resp, error)

// Respond serves subject in queue group queue. Each handler call gets a
// context cancelled after timeout (nats.DefaultTimeout when zero), matching
// how long a requester waits by default. Malformed requests and handler
// errors are answered with an ErrorReply rather than dropped, so requesters
// never wait for a timeout.
func Respond[Req, Resp any](nc *nats.Conn, subject, queue string, timeout time.Duration, h Handler[Req, Resp]) (*nats.Subscription, error) {
	if timeout <= 0 {
		timeout = nats.DefaultTimeout
	}
	return nc.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		ctx := otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
		msg.Respond(serve(ctx, timeout, msg.Data, h))
	})
}

func serve[Req, Resp any](ctx context.Context, timeout time.Duration, data []byte, h Handler[Req, Resp]) []byte {
	var req Req
	if err := json.Unmarshal(data, &req); err != nil {
		return mustJSON(ErrorReply{Error: "malformed request"})
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	resp, err := h(ctx, req)
	if err != nil {
		return mustJSON(ErrorReply{Error: err.Error()})
	}
	return mustJSON(resp)
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		b, _ = json.Marshal(ErrorReply{Error: "unencodable reply"})
	}
	return b
}

// Request sends req and decodes the reply. Without a ctx deadline it waits
// nats.DefaultTimeout. An ErrorReply comes back as a *ReplyError.
func Request[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	msg, err := newMsg(ctx, subject, req)
	if err != nil {
		return zero, err
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, nats.DefaultTimeout)
		defer cancel()
	}
	reply, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return zero, fmt.Errorf("natsutil: request %s: %w", subject, err)
	}
	return decodeReply[Resp](subject, reply.Data)
}

func decodeReply[Resp any](subject string, data []byte) (Resp, error) {
	var zero Resp
	var e ErrorReply
	if json.Unmarshal(data, &e) == nil && e.Error != "" {
		return zero, &ReplyError{Subject: subject, Message: e.Error}
	}
	var out Resp
	if err := json.Unmarshal(data, &out); err != nil {
		return zero, fmt.Errorf("natsutil: decode %s reply: %w", subject, err)
	}
	return out, nil
}
