package controller

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haimbb47/SkillForge/fhevmClient/ciphertext"
	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
	"github.com/haimbb47/SkillForge/fhevmClient/metrics"
	"github.com/haimbb47/SkillForge/fhevmClient/network"
	"github.com/haimbb47/SkillForge/fhevmClient/session"
	"github.com/haimbb47/SkillForge/testutils"
)

var (
	_ InstanceFactory             = (*session.Factory)(nil)
	_ Observer                    = (*metrics.Metrics)(nil)
	_ ciphertext.InstanceProvider = (*Controller)(nil)
)

const waitTimeout = 2 * time.Second

type result struct {
	inst fhevm.Instance
	err  error
}

type pendingCall struct {
	ctx    context.Context
	params session.CreateParams
	done   chan result
}

func (p *pendingCall) resolve(inst fhevm.Instance, err error) {
	p.done <- result{inst: inst, err: err}
}

// fakeFactory hands every Create call to the test, which decides when and
// how it returns.
type fakeFactory struct {
	calls chan *pendingCall
	// ignoreCancel keeps Create blocked after its context is cancelled,
	// like an external call that cannot be interrupted.
	ignoreCancel bool
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{calls: make(chan *pendingCall, 16)}
}

func (f *fakeFactory) Create(ctx context.Context, p session.CreateParams) (fhevm.Instance, error) {
	pc := &pendingCall{ctx: ctx, params: p, done: make(chan result, 1)}
	f.calls <- pc
	p.OnStatusChange(session.StatusCreating)

	select {
	case r := <-pc.done:
		return r.inst, r.err
	case <-ctx.Done():
		if !f.ignoreCancel {
			return nil, fherrors.NewAbortError(ctx.Err())
		}
		r := <-pc.done
		return r.inst, r.err
	}
}

func (f *fakeFactory) next(t *testing.T) *pendingCall {
	t.Helper()
	select {
	case pc := <-f.calls:
		return pc
	case <-time.After(waitTimeout):
		t.Fatal("timed out waiting for a construction")
		return nil
	}
}

func (f *fakeFactory) assertNoCall(t *testing.T) {
	t.Helper()
	select {
	case <-f.calls:
		t.Fatal("unexpected construction")
	case <-time.After(20 * time.Millisecond):
	}
}

type recordingObserver struct {
	mu       sync.Mutex
	outcomes []string
	steps    []session.Status
	ready    bool
}

func (o *recordingObserver) ConstructionFinished(outcome string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) StatusChanged(s session.Status) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.steps = append(o.steps, s)
}

func (o *recordingObserver) SetReady(ready bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ready = ready
}

func (o *recordingObserver) Outcomes() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.outcomes...)
}

func (o *recordingObserver) waitOutcomes(t *testing.T, n int) []string {
	t.Helper()
	require.Eventually(t, func() bool { return len(o.Outcomes()) >= n }, waitTimeout, 5*time.Millisecond)
	return o.Outcomes()
}

func newController(t *testing.T, f *fakeFactory, obs *recordingObserver) *Controller {
	t.Helper()
	c := New(Config{
		Factory:  f,
		Enabled:  true,
		Observer: obs,
		Logger:   zerolog.New(zerolog.NewTestWriter(t)),
	})
	t.Cleanup(c.Close)
	return c
}

func waitReady(t *testing.T, c *Controller) (fhevm.Instance, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), waitTimeout)
	defer cancel()
	return c.WaitReady(ctx)
}

func TestController_CommitsReadyInstance(t *testing.T) {
	f := newFakeFactory()
	obs := &recordingObserver{}
	c := newController(t, f, obs)

	assert.Equal(t, StatusIdle, c.State().Status)

	c.Update(network.URLTarget("http://localhost:8545"), 31337)
	assert.Equal(t, StatusLoading, c.State().Status)
	assert.Nil(t, c.Instance())

	call := f.next(t)
	assert.Equal(t, "http://localhost:8545", call.params.Target.URL)

	inst := testutils.NewFakeInstance(31337)
	call.resolve(inst, nil)

	got, err := waitReady(t, c)
	require.NoError(t, err)
	assert.Same(t, inst, got)
	assert.Same(t, inst, c.Instance())

	snap := c.State()
	assert.Equal(t, StatusReady, snap.Status)
	assert.Equal(t, session.StatusCreating, snap.Step)
	assert.Equal(t, uint64(31337), snap.ChainID)
	assert.Empty(t, snap.Error)

	assert.Equal(t, []string{metrics.OutcomeReady}, obs.waitOutcomes(t, 1))
	obs.mu.Lock()
	assert.True(t, obs.ready)
	assert.Equal(t, []session.Status{session.StatusCreating}, obs.steps)
	obs.mu.Unlock()
}

func TestController_OnlyLatestConstructionCommits(t *testing.T) {
	f := newFakeFactory()
	f.ignoreCancel = true
	obs := &recordingObserver{}
	c := newController(t, f, obs)

	c.Update(network.URLTarget("http://first"), 1)
	first := f.next(t)

	c.Update(network.URLTarget("http://second"), 2)
	second := f.next(t)

	assert.Error(t, first.ctx.Err(), "superseded construction must be cancelled")
	assert.NoError(t, second.ctx.Err())

	secondInst := testutils.NewFakeInstance(2)
	second.resolve(secondInst, nil)
	got, err := waitReady(t, c)
	require.NoError(t, err)
	assert.Same(t, secondInst, got)

	// The slower, older construction finishes last and must not overwrite.
	first.resolve(testutils.NewFakeInstance(1), nil)
	outcomes := obs.waitOutcomes(t, 2)
	assert.ElementsMatch(t, []string{metrics.OutcomeReady, metrics.OutcomeAborted}, outcomes)

	assert.Same(t, secondInst, c.Instance())
	assert.Equal(t, "http://second", c.State().Target)
}

func TestController_StaleErrorIsDiscarded(t *testing.T) {
	f := newFakeFactory()
	f.ignoreCancel = true
	obs := &recordingObserver{}
	c := newController(t, f, obs)

	c.Update(network.URLTarget("http://first"), 1)
	first := f.next(t)
	c.Update(network.URLTarget("http://second"), 2)
	second := f.next(t)

	first.resolve(nil, fherrors.NewRuntimeError("boom", nil))
	obs.waitOutcomes(t, 1)
	assert.Equal(t, StatusLoading, c.State().Status)
	assert.Empty(t, c.State().Error)

	second.resolve(testutils.NewFakeInstance(2), nil)
	_, err := waitReady(t, c)
	require.NoError(t, err)
}

func TestController_ErrorIsCommitted(t *testing.T) {
	f := newFakeFactory()
	obs := &recordingObserver{}
	c := newController(t, f, obs)

	c.Update(network.URLTarget("http://node"), 1)
	f.next(t).resolve(nil, fherrors.NewRuntimeError("initSDK failed", nil))

	_, err := waitReady(t, c)
	require.Error(t, err)
	assert.True(t, fherrors.Is(err, fherrors.ErrRuntime))

	snap := c.State()
	assert.Equal(t, StatusError, snap.Status)
	assert.Contains(t, snap.Error, "initSDK failed")
	assert.Nil(t, c.Instance())
	assert.Equal(t, []string{metrics.OutcomeError}, obs.waitOutcomes(t, 1))
}

func TestController_AbortNeverSurfacesAsError(t *testing.T) {
	f := newFakeFactory()
	obs := &recordingObserver{}
	c := newController(t, f, obs)

	c.Update(network.URLTarget("http://node"), 1)
	f.next(t).resolve(nil, fherrors.NewAbortError(context.Canceled))

	assert.Equal(t, []string{metrics.OutcomeAborted}, obs.waitOutcomes(t, 1))
	snap := c.State()
	assert.Equal(t, StatusIdle, snap.Status)
	assert.Empty(t, snap.Error)

	_, err := waitReady(t, c)
	assert.ErrorIs(t, err, ErrIdle)
}

func TestController_Refresh(t *testing.T) {
	f := newFakeFactory()
	c := newController(t, f, &recordingObserver{})

	c.Update(network.URLTarget("http://node"), 1)
	first := f.next(t)

	c.Refresh()
	second := f.next(t)
	assert.Error(t, first.ctx.Err())
	assert.Equal(t, StatusLoading, c.State().Status)

	inst := testutils.NewFakeInstance(1)
	second.resolve(inst, nil)
	got, err := waitReady(t, c)
	require.NoError(t, err)
	assert.Same(t, inst, got)

	// Refresh from ready drops the instance and builds a new one.
	c.Refresh()
	assert.Nil(t, c.Instance())
	third := f.next(t)
	third.resolve(testutils.NewFakeInstance(1), nil)
	_, err = waitReady(t, c)
	require.NoError(t, err)
}

func TestController_Disable(t *testing.T) {
	f := newFakeFactory()
	c := newController(t, f, &recordingObserver{})

	c.Update(network.URLTarget("http://node"), 1)
	first := f.next(t)

	c.SetEnabled(false)
	assert.Error(t, first.ctx.Err())
	assert.Equal(t, StatusIdle, c.State().Status)
	assert.False(t, c.State().Enabled)

	_, err := waitReady(t, c)
	assert.ErrorIs(t, err, ErrIdle)

	// Changing inputs while disabled does not construct.
	c.Update(network.URLTarget("http://other"), 2)
	f.assertNoCall(t)

	c.SetEnabled(true)
	inst := testutils.NewFakeInstance(2)
	f.next(t).resolve(inst, nil)
	got, err := waitReady(t, c)
	require.NoError(t, err)
	assert.Same(t, inst, got)
}

func TestController_InputDiffing(t *testing.T) {
	f := newFakeFactory()
	c := newController(t, f, &recordingObserver{})

	target := network.URLTarget("http://node")
	c.Update(target, 1)
	f.next(t).resolve(testutils.NewFakeInstance(1), nil)
	_, err := waitReady(t, c)
	require.NoError(t, err)

	c.Update(target, 1)
	f.assertNoCall(t)
	assert.Equal(t, StatusReady, c.State().Status)

	// A chain change alone restarts construction.
	c.Update(target, 2)
	assert.Equal(t, StatusLoading, c.State().Status)
	f.next(t).resolve(testutils.NewFakeInstance(2), nil)
	_, err = waitReady(t, c)
	require.NoError(t, err)

	// Clearing the target returns to idle without constructing.
	c.Update(network.Target{}, 0)
	f.assertNoCall(t)
	assert.Equal(t, StatusIdle, c.State().Status)
	assert.Nil(t, c.Instance())
}

func TestController_Subscribe(t *testing.T) {
	f := newFakeFactory()
	c := newController(t, f, &recordingObserver{})

	var mu sync.Mutex
	var seen []Snapshot
	unsubscribe := c.Subscribe(func(s Snapshot) {
		// Reading state from a callback must not deadlock.
		_ = c.State()
		mu.Lock()
		seen = append(seen, s)
		mu.Unlock()
	})

	c.Update(network.URLTarget("http://node"), 1)
	f.next(t).resolve(testutils.NewFakeInstance(1), nil)
	_, err := waitReady(t, c)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, waitTimeout, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, StatusLoading, seen[0].Status)
	assert.Empty(t, seen[0].Step)
	assert.Equal(t, StatusLoading, seen[1].Status)
	assert.Equal(t, session.StatusCreating, seen[1].Step)
	assert.Equal(t, StatusReady, seen[2].Status)
	mu.Unlock()

	unsubscribe()
	c.SetEnabled(false)

	mu.Lock()
	assert.Len(t, seen, 3)
	mu.Unlock()
}

func TestController_Close(t *testing.T) {
	f := newFakeFactory()
	c := New(Config{Factory: f, Enabled: true, Logger: zerolog.Nop()})

	c.Update(network.URLTarget("http://node"), 1)
	call := f.next(t)

	c.Close()
	assert.Error(t, call.ctx.Err())
	assert.Equal(t, StatusIdle, c.State().Status)

	// Closed controllers never construct again.
	c.Refresh()
	c.Update(network.URLTarget("http://other"), 2)
	f.assertNoCall(t)
	c.Close()
}

func TestController_WaitReadyHonoursContext(t *testing.T) {
	f := newFakeFactory()
	c := newController(t, f, &recordingObserver{})

	c.Update(network.URLTarget("http://node"), 1)
	f.next(t)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.WaitReady(ctx)
	assert.True(t, fherrors.IsAbort(err))
}
