package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aretw0/arbor/internal/logging"
	backend "github.com/redis/go-redis/v9"
)

// Handler answers a request on behalf of a module.
type Handler func(ctx context.Context, req Request) Reply

// Responder is the module side of the Dispatcher protocol. It is used by
// module simulators and tests.
type Responder struct {
	client *backend.Client
	prefix string
	logger *slog.Logger
}

// NewResponder creates a responder. prefix must match the Dispatcher's.
func NewResponder(client *backend.Client, prefix string, logger *slog.Logger) *Responder {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Responder{client: client, prefix: prefix, logger: logger}
}

// Listen subscribes module to its request channel and serves requests
// with h until ctx is done or the returned stop function is called.
// It returns once the subscription is confirmed.
func (r *Responder) Listen(ctx context.Context, module string, h Handler) (stop func() error, err error) {
	sub := r.client.Subscribe(ctx, ModuleChannel(r.prefix, module))
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe module %s: %w", module, err)
	}

	go func() {
		for msg := range sub.Channel() {
			var req Request
			if err := json.Unmarshal([]byte(msg.Payload), &req); err != nil {
				r.logger.Warn("ignoring malformed request", "module", module, "error", err)
				continue
			}
			reply := h(ctx, req)
			reply.ID = req.ID
			reply.Module = module
			payload, err := json.Marshal(reply)
			if err != nil {
				continue
			}
			if err := r.client.Publish(ctx, req.ReplyTo, payload).Err(); err != nil {
				r.logger.Warn("reply failed", "module", module, "error", err)
			}
		}
	}()

	go func() {
		<-ctx.Done()
		_ = sub.Close()
	}()
	return sub.Close, nil
}

// Always returns a handler giving the same answer to every request.
func Always(ok bool, reason string) Handler {
	return func(context.Context, Request) Reply {
		return Reply{OK: ok, Reason: reason}
	}
}
