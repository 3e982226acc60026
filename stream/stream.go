// Package stream is the transport reliability layer between the analysis
// backend's push channel and the state store. It owns reconnection with
// exponential backoff and the degradation to snapshot polling once the
// channel is judged unrecoverable, so the rest of the client never sees
// transport failures.
package stream

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vibecheck/vibegraph/analysis"
	"github.com/vibecheck/vibegraph/config"
	"github.com/vibecheck/vibegraph/errors"
)

// Conn abstracts the push channel connection for testability.
// The real implementation wraps gorilla/websocket; tests use a channel pair.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteJSON(v interface{}) error
	Close() error
}

// Dialer opens a push channel connection for one analysis id
type Dialer interface {
	Dial(ctx context.Context, analysisID string) (Conn, error)
}

// Poller fetches full-state snapshots while the push channel is down.
// The REST client satisfies this.
type Poller interface {
	Analysis(ctx context.Context, analysisID string) (*analysis.Result, error)
}

// Sink receives everything the transport delivers, tagged with the
// analysis id the delivery belongs to. The store satisfies this.
type Sink interface {
	HandleEvent(ctx context.Context, analysisID string, ev analysis.Event)
	HandleSnapshot(ctx context.Context, analysisID string, res analysis.Result)
}

// pingInterval is how often the client pings an established connection
const pingInterval = 30 * time.Second

type pingFrame struct {
	Type string `json:"type"`
}

// Subscriber runs the reliability loop for analysis subscriptions
type Subscriber struct {
	dialer Dialer
	poller Poller
	sink   Sink
	logger *zap.SugaredLogger

	maxRetries   int
	backoffBase  time.Duration
	backoffMax   time.Duration
	pollInterval time.Duration

	mu     sync.Mutex
	active map[string]context.CancelFunc // subscription id -> cancel
	wg     sync.WaitGroup
}

// Options configures a Subscriber. Dialer and Sink are required; Poller
// may be nil, in which case fallback polling is skipped and the loop keeps
// retrying the channel at the backoff ceiling.
type Options struct {
	Dialer    Dialer
	Poller    Poller
	Sink      Sink
	Logger    *zap.SugaredLogger
	Transport config.TransportConfig
}

// NewSubscriber creates a subscriber with the given transport tuning.
// Zero-valued transport fields fall back to the configuration defaults.
func NewSubscriber(opts Options) (*Subscriber, error) {
	if opts.Dialer == nil {
		return nil, errors.New("dialer is required")
	}
	if opts.Sink == nil {
		return nil, errors.New("sink is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	tr := opts.Transport
	if tr.MaxRetries <= 0 {
		tr.MaxRetries = 5
	}
	if tr.BackoffBaseMS <= 0 {
		tr.BackoffBaseMS = 1000
	}
	if tr.BackoffMaxMS <= 0 {
		tr.BackoffMaxMS = 30000
	}
	if tr.PollIntervalMS <= 0 {
		tr.PollIntervalMS = 2000
	}

	return &Subscriber{
		dialer:       opts.Dialer,
		poller:       opts.Poller,
		sink:         opts.Sink,
		logger:       logger,
		maxRetries:   tr.MaxRetries,
		backoffBase:  time.Duration(tr.BackoffBaseMS) * time.Millisecond,
		backoffMax:   time.Duration(tr.BackoffMaxMS) * time.Millisecond,
		pollInterval: time.Duration(tr.PollIntervalMS) * time.Millisecond,
		active:       make(map[string]context.CancelFunc),
	}, nil
}

// Subscribe starts the delivery loop for one analysis id and returns a
// function that stops it. Stopping cancels every pending reconnect timer
// and poll tick; no deliveries happen after the returned function returns.
func (s *Subscriber) Subscribe(ctx context.Context, analysisID string) (cancel func()) {
	subCtx, stop := context.WithCancel(ctx)
	subID := uuid.NewString()

	s.mu.Lock()
	s.active[subID] = stop
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		s.run(subCtx, analysisID, subID)
	}()

	return func() {
		stop()
		s.mu.Lock()
		delete(s.active, subID)
		s.mu.Unlock()
	}
}

// Close stops every active subscription and waits for their loops to exit
func (s *Subscriber) Close() {
	s.mu.Lock()
	for _, stop := range s.active {
		stop()
	}
	s.active = make(map[string]context.CancelFunc)
	s.mu.Unlock()
	s.wg.Wait()
}

// run is the reliability loop: connect, stream, and on failure either
// reconnect with backoff or degrade to polling once the retry budget is
// spent. A successful connection resets the retry counter.
func (s *Subscriber) run(ctx context.Context, analysisID, subID string) {
	logger := s.logger.With("analysis_id", analysisID, "subscription_id", subID)

	retries := 0
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := s.dialer.Dial(ctx, analysisID)
		if err != nil {
			logger.Warnw("Push channel dial failed", "attempt", retries+1, "error", err)
		} else {
			retries = 0
			terminal := s.consume(ctx, conn, analysisID, logger)
			if terminal || ctx.Err() != nil {
				return
			}
			logger.Warnw("Push channel dropped, reconnecting")
		}

		retries++
		if retries > s.maxRetries {
			logger.Warnw("Reconnect budget exhausted, degrading to polling",
				"retries", s.maxRetries,
			)
			s.poll(ctx, analysisID, logger)
			return
		}

		if !s.sleep(ctx, s.backoff(retries-1)) {
			return
		}
	}
}

// backoff returns the delay before reconnect attempt n (0-based):
// base doubled per attempt, capped at the ceiling.
func (s *Subscriber) backoff(attempt int) time.Duration {
	d := s.backoffBase << uint(attempt)
	if d <= 0 || d > s.backoffMax {
		return s.backoffMax
	}
	return d
}

// consume reads frames until the connection breaks, the context is
// cancelled, or a terminal event arrives. Returns true when the analysis
// finished and the loop should not reconnect.
func (s *Subscriber) consume(ctx context.Context, conn Conn, analysisID string, logger *zap.SugaredLogger) bool {
	defer conn.Close()

	// Close unblocks ReadMessage when the context is cancelled
	readDone := make(chan struct{})
	defer close(readDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-readDone:
		}
	}()

	go s.pingLoop(ctx, conn, readDone)

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return true
			}
			logger.Debugw("Push channel read ended", "error", err)
			return false
		}

		ev, err := analysis.ParseEvent(data)
		if err != nil {
			logger.Warnw("Dropping malformed frame", "error", err)
			continue
		}

		s.sink.HandleEvent(ctx, analysisID, ev)

		if isTerminalEvent(ev) {
			logger.Infow("Analysis reached terminal state, closing channel")
			return true
		}
	}
}

func (s *Subscriber) pingLoop(ctx context.Context, conn Conn, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-ticker.C:
			if err := conn.WriteJSON(pingFrame{Type: "ping"}); err != nil {
				return
			}
		}
	}
}

// poll fetches full snapshots on a fixed interval until the analysis
// reaches a terminal status. The interval does not back off: this path
// only runs when the push channel is already written off.
func (s *Subscriber) poll(ctx context.Context, analysisID string, logger *zap.SugaredLogger) {
	if s.poller == nil {
		logger.Warnw("No poller configured, giving up on analysis updates")
		return
	}

	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		result, err := s.poller.Analysis(ctx, analysisID)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Warnw("Snapshot poll failed", "error", err)
		} else {
			s.sink.HandleSnapshot(ctx, analysisID, *result)
			if result.Status.Terminal() {
				logger.Infow("Analysis reached terminal state while polling", "status", result.Status)
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// sleep waits for d or until the context is cancelled. Returns false on
// cancellation.
func (s *Subscriber) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// isTerminalEvent reports whether an event ends the analysis lifecycle
func isTerminalEvent(ev analysis.Event) bool {
	switch e := ev.(type) {
	case *analysis.CompleteEvent:
		return true
	case *analysis.StatusEvent:
		return e.Agent == "" && e.Status.Terminal()
	case *analysis.ErrorEvent:
		return !e.Recoverable
	default:
		return false
	}
}
