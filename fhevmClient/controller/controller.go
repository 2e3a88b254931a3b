// Package controller owns the current fhevm instance. It reacts to target,
// chain and enablement changes by cancelling the construction in flight and
// starting a new one, and only ever commits the result of the most recently
// started construction.
package controller

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
	"github.com/haimbb47/SkillForge/fhevmClient/metrics"
	"github.com/haimbb47/SkillForge/fhevmClient/network"
	"github.com/haimbb47/SkillForge/fhevmClient/session"
)

// Status is the controller state.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// ErrIdle is returned by WaitReady when no construction is running and none
// will be started without further input.
var ErrIdle = fherrors.New("no fhevm instance construction is in progress")

// InstanceFactory builds one instance per call. *session.Factory implements it.
type InstanceFactory interface {
	Create(ctx context.Context, p session.CreateParams) (fhevm.Instance, error)
}

// Observer receives construction events. *metrics.Metrics implements it.
type Observer interface {
	ConstructionFinished(outcome string)
	StatusChanged(s session.Status)
	SetReady(ready bool)
}

// Snapshot is a read-only view of the controller state.
type Snapshot struct {
	Status  Status         `json:"status"`
	Step    session.Status `json:"step,omitempty"`
	Enabled bool           `json:"enabled"`
	Target  string         `json:"target"`
	ChainID uint64         `json:"chain_id,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// Config wires a Controller.
type Config struct {
	Factory    InstanceFactory
	MockChains map[uint64]string
	Enabled    bool
	Observer   Observer
	Logger     zerolog.Logger
}

type Controller struct {
	factory    InstanceFactory
	mockChains map[uint64]string
	observer   Observer
	logger     zerolog.Logger

	mu         sync.Mutex
	enabled    bool
	closed     bool
	target     network.Target
	chainID    uint64
	status     Status
	step       session.Status
	instance   fhevm.Instance
	err        error
	cancel     context.CancelFunc
	generation uint64
	changed    chan struct{}

	// snapshots are queued while mu is held and delivered in order by
	// whichever goroutine holds notifyMu; callbacks run without mu.
	pendingMu   sync.Mutex
	pending     []Snapshot
	notifyMu    sync.Mutex
	subMu       sync.Mutex
	subscribers map[uint64]func(Snapshot)
	nextSubID   uint64

	wg sync.WaitGroup
}

func New(cfg Config) *Controller {
	c := &Controller{
		factory:     cfg.Factory,
		mockChains:  cfg.MockChains,
		observer:    cfg.Observer,
		logger:      cfg.Logger.With().Str("component", "session_controller").Logger(),
		enabled:     cfg.Enabled,
		status:      StatusIdle,
		changed:     make(chan struct{}),
		subscribers: make(map[uint64]func(Snapshot)),
	}
	if c.observer == nil {
		c.observer = nopObserver{}
	}
	return c
}

// Update sets the target and chain id. A change to either restarts
// construction; an identical call is a no-op.
func (c *Controller) Update(target network.Target, chainID uint64) {
	c.mu.Lock()
	if c.target == target && c.chainID == chainID {
		c.mu.Unlock()
		return
	}
	c.logger.Info().
		Str("target", target.String()).
		Uint64("chain_id", chainID).
		Msg("session inputs changed")
	c.target = target
	c.chainID = chainID
	c.restartLocked()
	c.mu.Unlock()
	c.flush()
}

// SetEnabled turns construction on or off. Disabling cancels any
// construction in flight and drops the current instance.
func (c *Controller) SetEnabled(enabled bool) {
	c.mu.Lock()
	if c.enabled == enabled {
		c.mu.Unlock()
		return
	}
	c.enabled = enabled
	c.restartLocked()
	c.mu.Unlock()
	c.flush()
}

// Refresh discards the current state and, if a target is set, starts a new
// construction.
func (c *Controller) Refresh() {
	c.mu.Lock()
	c.restartLocked()
	c.mu.Unlock()
	c.flush()
}

func (c *Controller) State() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Instance returns the committed instance, or nil unless the controller is
// ready.
func (c *Controller) Instance() fhevm.Instance {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != StatusReady {
		return nil
	}
	return c.instance
}

// Subscribe registers fn for every state transition and returns a function
// that removes it.
func (c *Controller) Subscribe(fn func(Snapshot)) func() {
	c.subMu.Lock()
	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = fn
	c.subMu.Unlock()

	return func() {
		c.subMu.Lock()
		delete(c.subscribers, id)
		c.subMu.Unlock()
	}
}

// WaitReady blocks until the controller is ready or in error, or ctx is done.
func (c *Controller) WaitReady(ctx context.Context) (fhevm.Instance, error) {
	for {
		c.mu.Lock()
		switch c.status {
		case StatusReady:
			inst := c.instance
			c.mu.Unlock()
			return inst, nil
		case StatusError:
			err := c.err
			c.mu.Unlock()
			return nil, err
		case StatusIdle:
			c.mu.Unlock()
			return nil, ErrIdle
		}
		changed := c.changed
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return nil, fherrors.NewAbortError(ctx.Err())
		case <-changed:
		}
	}
}

// Close cancels any construction in flight and waits for it to return.
// The controller stays idle afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.restartLocked()
	c.mu.Unlock()
	c.flush()
	c.wg.Wait()
}

// restartLocked cancels the current construction, resets to idle and starts
// a new construction when enabled with a target.
func (c *Controller) restartLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	c.generation++
	c.instance = nil
	c.err = nil
	c.step = ""
	c.setStatusLocked(StatusIdle)

	if c.closed || !c.enabled || c.target.IsZero() {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.setStatusLocked(StatusLoading)

	gen := c.generation
	target := c.target
	c.wg.Add(1)
	go c.construct(ctx, gen, target)
}

func (c *Controller) construct(ctx context.Context, gen uint64, target network.Target) {
	defer c.wg.Done()

	c.logger.Debug().Uint64("generation", gen).Str("target", target.String()).Msg("starting construction")

	inst, err := c.factory.Create(ctx, session.CreateParams{
		Target:     target,
		MockChains: c.mockChains,
		OnStatusChange: func(s session.Status) {
			c.observer.StatusChanged(s)
			c.progress(gen, s)
		},
	})

	c.mu.Lock()
	if gen != c.generation || ctx.Err() != nil || c.target != target {
		c.mu.Unlock()
		c.observer.ConstructionFinished(metrics.OutcomeAborted)
		c.logger.Debug().Uint64("generation", gen).Msg("discarding superseded construction")
		return
	}

	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
	switch {
	case err == nil:
		c.instance = inst
		c.setStatusLocked(StatusReady)
	case fherrors.IsAbort(err):
		c.setStatusLocked(StatusIdle)
	default:
		c.err = err
		c.setStatusLocked(StatusError)
	}
	c.mu.Unlock()
	c.flush()

	switch {
	case err == nil:
		c.observer.ConstructionFinished(metrics.OutcomeReady)
		c.logger.Info().Str("target", target.String()).Msg("fhevm instance ready")
	case fherrors.IsAbort(err):
		c.observer.ConstructionFinished(metrics.OutcomeAborted)
	default:
		c.observer.ConstructionFinished(metrics.OutcomeError)
		c.logger.Error().Err(err).Str("target", target.String()).Msg("fhevm instance construction failed")
	}
}

func (c *Controller) progress(gen uint64, s session.Status) {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.step = s
	c.queueLocked()
	c.mu.Unlock()
	c.flush()
}

func (c *Controller) setStatusLocked(s Status) {
	if c.status == s {
		return
	}
	c.status = s
	c.observer.SetReady(s == StatusReady)
	close(c.changed)
	c.changed = make(chan struct{})
	c.queueLocked()
}

func (c *Controller) queueLocked() {
	snap := c.snapshotLocked()
	c.pendingMu.Lock()
	c.pending = append(c.pending, snap)
	c.pendingMu.Unlock()
}

// flush delivers queued snapshots in queue order. A nested or concurrent
// call returns at once; the goroutine already delivering drains the queue.
func (c *Controller) flush() {
	for {
		if !c.notifyMu.TryLock() {
			return
		}
		for {
			snap, ok := c.popPending()
			if !ok {
				break
			}
			for _, fn := range c.subscriberList() {
				fn(snap)
			}
		}
		c.notifyMu.Unlock()

		c.pendingMu.Lock()
		empty := len(c.pending) == 0
		c.pendingMu.Unlock()
		if empty {
			return
		}
	}
}

func (c *Controller) popPending() (Snapshot, bool) {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	if len(c.pending) == 0 {
		return Snapshot{}, false
	}
	snap := c.pending[0]
	c.pending = c.pending[1:]
	return snap, true
}

func (c *Controller) subscriberList() []func(Snapshot) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	ids := make([]uint64, 0, len(c.subscribers))
	for id := range c.subscribers {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	fns := make([]func(Snapshot), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, c.subscribers[id])
	}
	return fns
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		Status:  c.status,
		Step:    c.step,
		Enabled: c.enabled,
		Target:  c.target.String(),
		ChainID: c.chainID,
	}
	if c.err != nil {
		snap.Error = c.err.Error()
	}
	return snap
}

type nopObserver struct{}

func (nopObserver) ConstructionFinished(string)  {}
func (nopObserver) StatusChanged(session.Status) {}
func (nopObserver) SetReady(bool)                {}
