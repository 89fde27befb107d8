// Package ingest consumes a provider stream and persists each accepted post.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/runnerr0/streamtally/internal/doc"
	"github.com/runnerr0/streamtally/internal/filter"
	"github.com/runnerr0/streamtally/internal/storage"
	"github.com/runnerr0/streamtally/internal/stream"
	"github.com/runnerr0/streamtally/internal/tally"
)

// DefaultInsertTimeout bounds a single insert.
const DefaultInsertTimeout = 5 * time.Second

// ErrRunning is returned when Run is called on a listener that is already
// consuming a stream.
var ErrRunning = errors.New("listener already running")

// Listener forwards posts from a provider stream to a sink. Payloads are
// handled one at a time in arrival order. State and Stats may be read from
// any goroutine while Run is in progress.
type Listener struct {
	filters       *filter.Set
	sink          storage.Sink
	insertTimeout time.Duration
	limiter       *rate.Limiter
	requireMatch  bool
	logger        *slog.Logger
	metrics       *Metrics

	running atomic.Bool
	state   atomic.Int32

	received      atomic.Int64
	accepted      atomic.Int64
	decodeFailed  atomic.Int64
	storageFailed atomic.Int64
	unmatched     atomic.Int64
	rateLimited   atomic.Int64
}

// Option configures a Listener.
type Option func(*Listener)

// WithInsertTimeout sets the per-insert deadline. Zero or negative keeps
// the default.
func WithInsertTimeout(d time.Duration) Option {
	return func(l *Listener) {
		if d > 0 {
			l.insertTimeout = d
		}
	}
}

// WithMaxInsertRate caps inserts per second. Zero means unlimited.
func WithMaxInsertRate(perSecond float64) Option {
	return func(l *Listener) {
		if perSecond > 0 {
			burst := int(perSecond)
			if burst < 1 {
				burst = 1
			}
			l.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithRequireMatch drops posts none of whose hashtags is in the filter set.
func WithRequireMatch(on bool) Option {
	return func(l *Listener) { l.requireMatch = on }
}

func WithLogger(logger *slog.Logger) Option {
	return func(l *Listener) {
		if logger != nil {
			l.logger = logger
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(l *Listener) { l.metrics = m }
}

// New creates a listener for filters that writes to sink.
func New(filters *filter.Set, sink storage.Sink, opts ...Option) (*Listener, error) {
	if filters == nil || filters.Len() == 0 {
		return nil, fmt.Errorf("%w: listener needs a non-empty filter set", filter.ErrConfiguration)
	}
	if sink == nil {
		return nil, fmt.Errorf("%w: listener needs a sink", filter.ErrConfiguration)
	}

	l := &Listener{
		filters:       filters,
		sink:          sink,
		insertTimeout: DefaultInsertTimeout,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	l.logger = l.logger.With("component", "listener")
	return l, nil
}

// State returns the current connection state.
func (l *Listener) State() State { return State(l.state.Load()) }

// Stats returns a snapshot of the counters.
func (l *Listener) Stats() Stats {
	return Stats{
		Received:      l.received.Load(),
		Accepted:      l.accepted.Load(),
		DecodeFailed:  l.decodeFailed.Load(),
		StorageFailed: l.storageFailed.Load(),
		Unmatched:     l.unmatched.Load(),
		RateLimited:   l.rateLimited.Load(),
	}
}

func (l *Listener) setState(s State) {
	old := State(l.state.Swap(int32(s)))
	l.metrics.setState(s)
	if old != s {
		l.logger.Debug("state change", "from", old.String(), "to", s.String())
	}
}

// Run connects to provider with the filter set's track terms and consumes
// the stream until it ends, ctx is cancelled or the transport fails. The
// first two return nil and leave the listener Disconnected. A transport
// failure leaves it Failed and returns an error wrapping
// stream.ErrTransport. Decode and storage failures are counted and do not
// stop the session.
func (l *Listener) Run(ctx context.Context, provider stream.Provider) error {
	if !l.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	defer l.running.Store(false)

	track := l.filters.Track()
	log := l.logger.With("provider", provider.Name())
	log.Info("connecting", "track", l.filters.String())

	st, err := provider.Connect(ctx, track)
	if err != nil {
		if ctx.Err() != nil {
			l.setState(Disconnected)
			return nil
		}
		l.setState(Failed)
		return l.transportFailure(provider.Name(), "connect", err)
	}
	defer st.Close()
	l.setState(Connected)
	log.Info("connected")

	l.setState(Streaming)
	for {
		msg, err := st.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				log.Info("stopped")
				l.setState(Disconnected)
				return nil
			}
			if errors.Is(err, io.EOF) {
				log.Info("stream ended")
				l.setState(Disconnected)
				return nil
			}
			l.setState(Failed)
			return l.transportFailure(provider.Name(), "read", err)
		}

		switch msg.Kind {
		case stream.RateLimited:
			l.rateLimited.Add(1)
			l.metrics.rateLimit()
			l.setState(Suspended)
			if msg.Until.IsZero() {
				log.Warn("rate limited")
			} else {
				log.Warn("rate limited", "until", msg.Until.Format(time.RFC3339))
			}
			if !sleepUntil(ctx, msg.Until) {
				l.setState(Disconnected)
				return nil
			}
		case stream.Resumed:
			log.Info("resumed")
			l.setState(Streaming)
		case stream.Data:
			if l.State() == Suspended {
				l.setState(Streaming)
			}
			if stopped := l.handle(ctx, msg.Payload); stopped {
				l.setState(Disconnected)
				return nil
			}
		}
	}
}

func (l *Listener) transportFailure(provider, op string, err error) error {
	if !errors.Is(err, stream.ErrTransport) {
		err = &stream.TransportError{Provider: provider, Op: op, Err: err}
	}
	l.logger.Error("transport failure", "provider", provider, "error", err)
	return err
}

// handle processes one payload. It reports true when ctx was cancelled
// while the payload was in flight.
func (l *Listener) handle(ctx context.Context, payload []byte) bool {
	l.received.Add(1)

	d, err := doc.DecodeObject(payload)
	if err != nil {
		l.decodeFailed.Add(1)
		l.metrics.outcome(OutcomeDecodeFailed)
		l.logger.Warn("skipping undecodable payload", "error", err, "bytes", len(payload))
		return false
	}

	if l.requireMatch && !l.filters.MatchesAny(tally.HashtagTexts(d)) {
		l.unmatched.Add(1)
		l.metrics.outcome(OutcomeUnmatched)
		l.logger.Debug("skipping post without tracked hashtag")
		return false
	}

	if l.limiter != nil {
		if err := l.limiter.Wait(ctx); err != nil {
			return ctx.Err() != nil
		}
	}

	event := storage.NewEvent(payload, d)
	start := time.Now()
	err = l.insert(ctx, event)
	l.metrics.observeInsert(time.Since(start).Seconds())
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		l.storageFailed.Add(1)
		l.metrics.outcome(OutcomeStorageFailed)
		l.logger.Error("insert failed", "event_id", event.ID, "error", err)
		return false
	}

	l.accepted.Add(1)
	l.metrics.outcome(OutcomeAccepted)
	return false
}

// insert runs the sink call under the insert timeout. It returns as soon as
// ctx is cancelled; the sink call is left to finish on its own.
func (l *Listener) insert(ctx context.Context, event *storage.Event) error {
	ictx, cancel := context.WithTimeout(ctx, l.insertTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- l.sink.Insert(ictx, event) }()

	select {
	case err := <-done:
		return err
	case <-ictx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: insert timed out after %s", storage.ErrUnavailable, l.insertTimeout)
	}
}

// sleepUntil waits for t and reports false if ctx ended first.
func sleepUntil(ctx context.Context, t time.Time) bool {
	d := time.Until(t)
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
