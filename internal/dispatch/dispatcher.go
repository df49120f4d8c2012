package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"pushrelay/internal/eventbus"
	"pushrelay/internal/push"
	logx "pushrelay/pkg/logx"
)

const (
	KindUser  = "user"
	KindTopic = "topic"
)

// Result is the outcome of one delivery attempt.
// MessageID is set iff Success; Error is set iff not.
type Result struct {
	Recipient ID     `json:"user_id"`
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`

	// Err is the typed failure (*ValidationError or *TransportError).
	Err error `json:"-"`
}

type Options struct {
	// FanoutWorkers > 1 sends to multiple users in parallel. Result order is unaffected.
	FanoutWorkers int
	// FanoutRPS > 0 throttles fan-out sends.
	FanoutRPS int
	// Now overrides the clock used for data.timestamp.
	Now func() time.Time
}

// Dispatcher turns requests into sends against a push.Sender and reports
// one Result per recipient. Sender failures and panics never escape it.
type Dispatcher struct {
	sender  push.Sender
	log     logx.Logger
	bus     eventbus.Bus
	now     func() time.Time
	workers int
	limiter *rate.Limiter
	tracer  trace.Tracer
}

func New(sender push.Sender, opts Options, log logx.Logger, bus eventbus.Bus) *Dispatcher {
	d := &Dispatcher{
		sender:  sender,
		log:     log,
		bus:     bus,
		now:     opts.Now,
		workers: opts.FanoutWorkers,
		tracer:  otel.Tracer("pushrelay/dispatch"),
	}
	if d.now == nil {
		d.now = time.Now
	}
	if d.workers < 1 {
		d.workers = 1
	}
	if opts.FanoutRPS > 0 {
		d.limiter = rate.NewLimiter(rate.Limit(opts.FanoutRPS), opts.FanoutRPS)
	}
	return d
}

// ToUser sends to the user's channel. The returned error is non-nil only for
// validation failures; transport failures are reported in the Result.
func (d *Dispatcher) ToUser(ctx context.Context, user ID, req Request) (Result, error) {
	if err := checkUser(user); err != nil {
		return Result{Recipient: user, Error: err.Error(), Err: err}, err
	}
	msg := BuildMessage(UserChannel(user), user, req, d.now())
	id, err := d.send(ctx, KindUser, msg)
	return newResult(user, id, err), nil
}

// ToUsers sends independently to every user. The results match users one-to-one,
// in input order. An empty or unusable id yields a failed entry, not a failed call.
func (d *Dispatcher) ToUsers(ctx context.Context, users []ID, req Request) ([]Result, error) {
	if len(users) == 0 {
		return nil, required("user_ids", "user_ids list is required")
	}

	start := time.Now()
	results := make([]Result, len(users))
	deliver := func(i int) { results[i] = d.deliverToUser(ctx, users[i], req) }

	workers := min(d.workers, len(users))
	if workers <= 1 {
		for i := range users {
			deliver(i)
		}
	} else {
		jobs := make(chan int)
		var wg sync.WaitGroup
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range jobs {
					deliver(i)
				}
			}()
		}
		for i := range users {
			jobs <- i
		}
		close(jobs)
		wg.Wait()
	}

	ok := 0
	for _, r := range results {
		if r.Success {
			ok++
		}
	}
	d.log.Info("fan-out finished",
		logx.Int("total", len(results)),
		logx.Int("ok", ok),
		logx.Int("failed", len(results)-ok),
		logx.Duration("elapsed", time.Since(start)),
	)
	return results, nil
}

func (d *Dispatcher) deliverToUser(ctx context.Context, user ID, req Request) Result {
	if err := checkUser(user); err != nil {
		return Result{Recipient: user, Error: err.Error(), Err: err}
	}
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			terr := &TransportError{Destination: UserChannel(user), Err: err}
			return Result{Recipient: user, Error: terr.Error(), Err: terr}
		}
	}
	msg := BuildMessage(UserChannel(user), user, req, d.now())
	id, err := d.send(ctx, KindUser, msg)
	return newResult(user, id, err)
}

func checkUser(user ID) error {
	switch {
	case user.IsZero():
		return required("user_id", "user_id is required")
	case !user.Addressable():
		return &ValidationError{Field: "user_id", Msg: "user_id must be a string or a number"}
	}
	return nil
}

// ToTopic sends to the literal topic name.
func (d *Dispatcher) ToTopic(ctx context.Context, topic string, req Request) (Result, error) {
	if strings.TrimSpace(topic) == "" {
		err := required("topic", "topic is required")
		return Result{Error: err.Error(), Err: err}, err
	}
	msg := BuildMessage(topic, ID{}, req, d.now())
	id, err := d.send(ctx, KindTopic, msg)
	return newResult(StringID(topic), id, err), nil
}

func newResult(recipient ID, messageID string, err error) Result {
	if err != nil {
		return Result{Recipient: recipient, Error: err.Error(), Err: err}
	}
	return Result{Recipient: recipient, Success: true, MessageID: messageID}
}

func (d *Dispatcher) send(ctx context.Context, kind string, msg push.Message) (string, error) {
	ctx, span := d.tracer.Start(ctx, "push.send", trace.WithAttributes(
		attribute.String("push.kind", kind),
		attribute.String("push.destination", msg.Topic),
	))
	defer span.End()

	start := time.Now()
	id, err := d.safeSend(ctx, msg)
	elapsed := time.Since(start)

	if err != nil {
		terr := &TransportError{Destination: msg.Topic, Err: err}
		span.RecordError(terr)
		span.SetStatus(codes.Error, terr.Error())
		d.log.Warn("push send failed",
			logx.String("kind", kind),
			logx.String("destination", msg.Topic),
			logx.Duration("elapsed", elapsed),
			logx.Err(err),
		)
		d.publish(eventbus.TypeDispatchFailed, eventbus.DispatchOutcome{
			Kind: kind, Destination: msg.Topic, Err: err.Error(), Duration: elapsed,
		})
		return "", terr
	}

	span.SetAttributes(attribute.String("push.message_id", id))
	d.log.Info("push sent",
		logx.String("kind", kind),
		logx.String("destination", msg.Topic),
		logx.String("message_id", id),
		logx.Duration("elapsed", elapsed),
	)
	d.publish(eventbus.TypeDispatchSent, eventbus.DispatchOutcome{
		Kind: kind, Destination: msg.Topic, MessageID: id, Duration: elapsed,
	})
	return id, nil
}

func (d *Dispatcher) safeSend(ctx context.Context, msg push.Message) (id string, err error) {
	if d.sender == nil {
		return "", push.ErrUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("push sender panicked",
				logx.String("destination", msg.Topic),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())),
			)
			id, err = "", fmt.Errorf("sender panic: %v", r)
		}
	}()
	return d.sender.Send(ctx, msg)
}

func (d *Dispatcher) publish(typ string, data eventbus.DispatchOutcome) {
	if d.bus == nil {
		return
	}
	d.bus.Publish(eventbus.Event{Type: typ, Data: data})
}
