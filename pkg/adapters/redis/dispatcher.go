package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/arbor/internal/logging"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
)

// DefaultReplyTimeout bounds the wait for module replies.
const DefaultReplyTimeout = 5 * time.Second

// Request is published to every module a known node talks to.
type Request struct {
	ID       string          `json:"id"`
	Leaf     string          `json:"leaf"`
	Type     domain.NodeType `json:"type"`
	Module   string          `json:"module"`
	Tree     string          `json:"tree"`
	Step     uint8           `json:"step"`
	RunID    string          `json:"run_id"`
	ReplyTo  string          `json:"reply_to"`
	Deadline time.Time       `json:"deadline"`
}

// Reply is published by a module on the request's ReplyTo channel.
type Reply struct {
	ID     string `json:"id"`
	Module string `json:"module"`
	OK     bool   `json:"ok"`
	Reason string `json:"reason,omitempty"`
}

// Dispatcher implements ports.LeafExecutor over Redis pub/sub. Each leaf
// call is fanned out to the modules of its messaging descriptor and the
// replies are aggregated according to the descriptor's reply mode.
type Dispatcher struct {
	client  *backend.Client
	prefix  string
	timeout time.Duration
	logger  *slog.Logger
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithPrefix namespaces every channel, e.g. "arbor:".
func WithPrefix(prefix string) DispatcherOption {
	return func(d *Dispatcher) {
		d.prefix = prefix
	}
}

// WithReplyTimeout bounds the wait for replies. A timeout is a Failure.
func WithReplyTimeout(timeout time.Duration) DispatcherOption {
	return func(d *Dispatcher) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// NewDispatcher creates a dispatcher on client.
func NewDispatcher(client *backend.Client, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		client:  client,
		timeout: DefaultReplyTimeout,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// ModuleChannel is the channel a module listens on for requests.
func ModuleChannel(prefix, module string) string {
	return prefix + "module:" + module
}

// ReplyChannel is the channel replies to request id are published on.
func ReplyChannel(prefix, id string) string {
	return prefix + "reply:" + id
}

// Execute publishes the call and waits for the replies it needs.
// Leaves without a messaging descriptor have nothing to ask and succeed.
func (d *Dispatcher) Execute(ctx context.Context, call domain.LeafCall) domain.Outcome {
	m := call.Node.Messaging
	if m == nil || len(m.Modules) == 0 {
		return domain.Success()
	}

	id := uuid.NewString()
	replyTo := ReplyChannel(d.prefix, id)

	// Subscribe before publishing so no reply can be missed.
	sub := d.client.Subscribe(ctx, replyTo)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return domain.Cancelled(ctxErr.Error())
		}
		return domain.Failure(fmt.Sprintf("subscribe %s: %v", replyTo, err))
	}
	replies := sub.Channel()

	deadline := time.Now().Add(d.timeout)
	for _, module := range m.Modules {
		payload, err := json.Marshal(Request{
			ID:       id,
			Leaf:     call.Name,
			Type:     call.Node.Type,
			Module:   module,
			Tree:     call.Tree,
			Step:     call.StepNumber,
			RunID:    call.RunID,
			ReplyTo:  replyTo,
			Deadline: deadline,
		})
		if err != nil {
			return domain.Failure(fmt.Sprintf("encode request: %v", err))
		}
		receivers, err := d.client.Publish(ctx, ModuleChannel(d.prefix, module), payload).Result()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return domain.Cancelled(ctxErr.Error())
			}
			return domain.Failure(fmt.Sprintf("publish to %s: %v", module, err))
		}
		if receivers == 0 {
			d.logger.Warn("no module listening", "module", module, "leaf", call.Name)
		}
	}

	agg := newAggregator(m.MinReply, m.Modules)
	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return domain.Cancelled(ctx.Err().Error())
		case <-timer.C:
			return domain.Failure(fmt.Sprintf("timed out after %s waiting for %s", d.timeout, strings.Join(agg.pending(), ", ")))
		case msg, ok := <-replies:
			if !ok {
				return domain.Failure("reply subscription closed")
			}
			var reply Reply
			if err := json.Unmarshal([]byte(msg.Payload), &reply); err != nil || reply.ID != id {
				d.logger.Warn("ignoring malformed reply", "channel", msg.Channel, "error", err)
				continue
			}
			d.logger.Debug("module replied", "leaf", call.Name, "module", reply.Module, "ok", reply.OK)
			if out, done := agg.add(reply); done {
				return out
			}
		}
	}
}

// aggregator folds module replies into an outcome.
type aggregator struct {
	mode    domain.ReplyMode
	waiting map[string]bool
	order   []string
	failure string
}

func newAggregator(mode domain.ReplyMode, modules []string) *aggregator {
	a := &aggregator{mode: mode, waiting: make(map[string]bool, len(modules))}
	for _, m := range modules {
		if !a.waiting[m] {
			a.waiting[m] = true
			a.order = append(a.order, m)
		}
	}
	return a
}

func (a *aggregator) pending() []string {
	var p []string
	for _, m := range a.order {
		if a.waiting[m] {
			p = append(p, m)
		}
	}
	return p
}

// add records a reply and reports whether the outcome is decided.
// Replies from unexpected or already answered modules are ignored.
func (a *aggregator) add(r Reply) (domain.Outcome, bool) {
	if !a.waiting[r.Module] {
		return domain.Outcome{}, false
	}
	a.waiting[r.Module] = false
	if !r.OK {
		a.failure = fmt.Sprintf("%s: %s", r.Module, r.Reason)
	}

	switch a.mode {
	case domain.ReplyOne:
		if r.OK {
			return domain.Success(), true
		}
		return domain.Failure(a.failure), true
	case domain.ReplyAll:
		if !r.OK {
			return domain.Failure(a.failure), true
		}
		if len(a.pending()) == 0 {
			return domain.Success(), true
		}
	default: // domain.ReplyAny
		if r.OK {
			return domain.Success(), true
		}
		if len(a.pending()) == 0 {
			return domain.Failure(a.failure), true
		}
	}
	return domain.Outcome{}, false
}
