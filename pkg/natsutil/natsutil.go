// Package natsutil provides typed NATS publish/subscribe/request helpers
// with OpenTelemetry trace propagation.
package natsutil

import (
	"context"
	"encoding/json"
	"fmt"
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

func newMsg(ctx context.Context, subject string, v any) (*nats.Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("natsutil: marshal %s: %w", subject, err)
	}
	msg := &nats.Msg{Subject: subject, Data: data}
	otel.GetTextMapPropagator().Inject(ctx, (*natsHeaderCarrier)(msg))
	return msg, nil
}

func extract(msg *nats.Msg) context.Context {
	return otel.GetTextMapPropagator().Extract(context.Background(), (*natsHeaderCarrier)(msg))
}

// Publish serializes v as JSON and publishes to the given subject.
// Trace context from ctx is injected into NATS message headers.
func Publish[T any](ctx context.Context, nc *nats.Conn, subject string, v T) error {
	msg, err := newMsg(ctx, subject, v)
	if err != nil {
		return err
	}
	return nc.PublishMsg(msg)
}

// Subscribe registers a handler that deserializes JSON messages of type T.
// Trace context is extracted from NATS message headers and passed to the handler.
// Malformed messages are silently dropped.
func Subscribe[T any](nc *nats.Conn, subject string, handler func(context.Context, T)) (*nats.Subscription, error) {
	return nc.Subscribe(subject, func(msg *nats.Msg) {
		var v T
		if err := json.Unmarshal(msg.Data, &v); err != nil {
			return // drop malformed messages
		}
		handler(extract(msg), v)
	})
}

// Request sends a JSON-encoded request and decodes the response. Without a
// deadline on ctx, nats.DefaultTimeout applies.
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
	resp, err := nc.RequestMsgWithContext(ctx, msg)
	if err != nil {
		return zero, fmt.Errorf("natsutil: request %s: %w", subject, err)
	}
	var result Resp
	if err := json.Unmarshal(resp.Data, &result); err != nil {
		return zero, fmt.Errorf("natsutil: decode reply from %s: %w", subject, err)
	}
	return result, nil
}

// Error kinds carried in a reply envelope.
const (
	KindBadRequest = "bad_request"
	KindInternal   = "internal"
)

// ReplyError describes why a request could not be served.
type ReplyError struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (e *ReplyError) Error() string { return e.Kind + ": " + e.Message }

// Reply is the envelope returned by Serve handlers. Exactly one of Result and
// Error is set.
type Reply[T any] struct {
	Result *T          `json:"result,omitempty"`
	Error  *ReplyError `json:"error,omitempty"`
}

// Call performs Request and unwraps the Reply envelope. A remote failure is
// returned as *ReplyError.
func Call[Req, Resp any](ctx context.Context, nc *nats.Conn, subject string, req Req) (Resp, error) {
	var zero Resp
	reply, err := Request[Req, Reply[Resp]](ctx, nc, subject, req)
	if err != nil {
		return zero, err
	}
	if reply.Error != nil {
		return zero, reply.Error
	}
	if reply.Result == nil {
		return zero, fmt.Errorf("natsutil: empty reply from %s", subject)
	}
	return *reply.Result, nil
}

// ServeOpts configures Serve.
type ServeOpts struct {
	// Queue is the queue group; empty subscribes every instance.
	Queue string
	// Classify maps a handler error to a ReplyError kind. Nil reports every
	// failure as KindInternal.
	Classify func(error) string
	Logger   *slog.Logger
}

// Serve answers requests on subject with handler, replying with a Reply
// envelope. Requests that do not decode are answered with KindBadRequest.
func Serve[Req, Resp any](nc *nats.Conn, subject string, opts ServeOpts, handler func(context.Context, Req) (Resp, error)) (*nats.Subscription, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	respond := func(msg *nats.Msg, reply Reply[Resp]) {
		data, err := json.Marshal(reply)
		if err != nil {
			logger.Error("natsutil: encode reply", "subject", subject, "err", err)
			return
		}
		if err := msg.Respond(data); err != nil {
			logger.Warn("natsutil: respond", "subject", subject, "err", err)
		}
	}
	return nc.QueueSubscribe(subject, opts.Queue, func(msg *nats.Msg) {
		var req Req
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			respond(msg, Reply[Resp]{Error: &ReplyError{Kind: KindBadRequest, Message: err.Error()}})
			return
		}
		resp, err := handler(extract(msg), req)
		if err != nil {
			kind := KindInternal
			if opts.Classify != nil {
				kind = opts.Classify(err)
			}
			respond(msg, Reply[Resp]{Error: &ReplyError{Kind: kind, Message: err.Error()}})
			return
		}
		respond(msg, Reply[Resp]{Result: &resp})
	})
}
