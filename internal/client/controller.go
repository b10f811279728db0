package client

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/airlog/backend/internal/models"
)

// StoreClient is the full surface the controller needs from the store.
// *Client implements it; tests substitute a fake.
type StoreClient interface {
	Snapshot(ctx context.Context, token string) (*Snapshot, error)
	Notes(ctx context.Context, sessionID, testerID uuid.UUID) ([]models.Note, error)
	Store
}

// Options configures a Controller. Zero values get sane defaults.
type Options struct {
	Clock        clockwork.Clock
	Logger       *zap.Logger
	WriteTimeout time.Duration
	// OnWrite receives dispatcher commit outcomes. Policy for failed
	// writes lives here, not inside the dispatcher.
	OnWrite func(WriteResult)
}

type fetchResult struct {
	snap  *Snapshot
	notes []models.Note
	err   error
}

// Controller owns the poll loop: one timer, one state, one dispatcher.
// All state access happens on the Run goroutine; user actions and fetch
// results are funneled through channels.
type Controller struct {
	store      StoreClient
	token      string
	clock      clockwork.Clock
	logger     *zap.Logger
	state      *State
	dispatcher *Dispatcher

	actions   chan func()
	fetchDone chan fetchResult
	updates   chan *State

	interval time.Duration
	ticker   clockwork.Ticker
	inFlight bool
	// idle is terminal: the session ended and polling never resumes.
	// stopped is recoverable through Retry after a permanent client error.
	idle    bool
	stopped bool
}

// NewController creates a controller polling the store with token.
func NewController(store StoreClient, token string, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	state := NewState()
	c := &Controller{
		store:     store,
		token:     token,
		clock:     opts.Clock,
		logger:    opts.Logger,
		state:     state,
		actions:   make(chan func(), 16),
		fetchDone: make(chan fetchResult, 1),
		updates:   make(chan *State, 1),
	}
	c.dispatcher = NewDispatcher(store, state, opts.WriteTimeout, opts.OnWrite, opts.Logger)
	return c
}

// Updates returns the reconciled-state stream. The channel holds only the
// latest state; a slow reader sees the newest copy, not a backlog.
func (c *Controller) Updates() <-chan *State {
	return c.updates
}

// ToggleIssue flips a reported issue from the UI goroutine.
func (c *Controller) ToggleIssue(issue string) {
	c.enqueue(func() {
		c.dispatcher.ToggleIssue(issue)
		c.publish()
	})
}

// AnswerPoll records a poll answer from the UI goroutine.
func (c *Controller) AnswerPoll(questionID uuid.UUID, option string) {
	c.enqueue(func() {
		c.dispatcher.AnswerPoll(questionID, option)
		c.publish()
	})
}

// SelectScene changes the locally selected scene from the UI goroutine.
func (c *Controller) SelectScene(id uuid.UUID) {
	c.enqueue(func() {
		if c.dispatcher.SelectScene(id) {
			c.publish()
		}
	})
}

// Retry resumes polling after a permanent client error stop. It has no
// effect while polling is healthy or after the session ended.
func (c *Controller) Retry() {
	c.enqueue(func() {
		if !c.stopped || c.idle {
			return
		}
		c.stopped = false
		c.state.FailedPolls = 0
		c.rearm(PollInterval(c.state.Phase))
		c.startFetch()
	})
}

func (c *Controller) enqueue(fn func()) {
	select {
	case c.actions <- fn:
	default:
		c.logger.Warn("action queue full, dropping action")
	}
}

// Run drives the poll loop until ctx is done. It fetches immediately, then
// on the phase-dependent cadence.
func (c *Controller) Run(ctx context.Context) {
	c.rearm(PollInterval(c.state.Phase))
	c.startFetch()
	defer c.stopTicker()

	for {
		var tick <-chan time.Time
		if c.ticker != nil {
			tick = c.ticker.Chan()
		}

		select {
		case <-ctx.Done():
			return

		case fn := <-c.actions:
			fn()

		case <-tick:
			// One outstanding fetch at a time; ticks during flight are
			// dropped, not queued.
			if c.inFlight || c.idle || c.stopped {
				continue
			}
			c.startFetch()

		case res := <-c.fetchDone:
			c.inFlight = false
			c.handleFetch(res)
		}
	}
}

func (c *Controller) startFetch() {
	if c.inFlight || c.idle || c.stopped {
		return
	}
	c.inFlight = true
	token := c.token
	go func() {
		ctx := context.Background()
		snap, err := c.store.Snapshot(ctx, token)
		res := fetchResult{snap: snap, err: err}
		if err == nil {
			notes, nerr := c.store.Notes(ctx, snap.Session.ID, snap.Tester.ID)
			if nerr != nil {
				c.logger.Warn("notes fetch failed", zap.Error(nerr))
			} else {
				res.notes = notes
			}
		}
		c.fetchDone <- res
	}()
}

func (c *Controller) handleFetch(res fetchResult) {
	switch {
	case res.err == nil:
		c.state.applySnapshot(res.snap, c.clock.Now())
		if res.notes != nil {
			c.state.Notes = res.notes
		}
		c.rearm(PollInterval(c.state.Phase))

	case errors.Is(res.err, ErrEnded):
		// Terminal: cancel the timer and never poll again.
		c.state.Phase = PhaseEnded
		c.idle = true
		c.stopTicker()
		c.logger.Info("session ended, polling stopped")

	case errors.Is(res.err, ErrNotStarted):
		// Expected steady state before start; keep polling fast.
		c.state.Phase = PhaseNotStarted
		c.state.FailedPolls = 0
		c.rearm(PollInterval(PhaseNotStarted))

	case errors.Is(res.err, ErrInvalidToken), isPermanent(res.err):
		c.state.recordFailure()
		c.stopped = true
		c.stopTicker()
		c.logger.Error("permanent fetch error, polling stopped", zap.Error(res.err))

	default:
		// Transient: keep last-known-good state and the current cadence.
		c.state.recordFailure()
		c.logger.Warn("snapshot fetch failed", zap.Error(res.err), zap.Int("failed_polls", c.state.FailedPolls))
	}

	c.publish()
}

// rearm resets the ticker when the cadence changed. A zero interval stops
// ticking entirely.
func (c *Controller) rearm(interval time.Duration) {
	if interval == c.interval && c.ticker != nil {
		return
	}
	c.stopTicker()
	c.interval = interval
	if interval > 0 {
		c.ticker = c.clock.NewTicker(interval)
	}
}

func (c *Controller) stopTicker() {
	if c.ticker != nil {
		c.ticker.Stop()
		c.ticker = nil
	}
	c.interval = 0
}

// publish hands the latest state copy to the UI, replacing any unread one.
func (c *Controller) publish() {
	snapshot := c.state.clone()
	for {
		select {
		case c.updates <- snapshot:
			return
		default:
			select {
			case <-c.updates:
			default:
			}
		}
	}
}

func isPermanent(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Permanent()
}
