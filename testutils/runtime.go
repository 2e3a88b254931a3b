package testutils

import (
	"context"
	"sync"

	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
)

// FakeRuntime builds relayer runtime exports backed by counters and hooks.
type FakeRuntime struct {
	Instance      fhevm.Instance
	NetworkConfig fhevm.NetworkConfig

	// Initialized, when non-nil, is exported as __initialized__.
	Initialized *bool

	InitResult bool
	InitErr    error
	CreateErr  error

	// OnCreate runs inside createInstance before it returns.
	OnCreate func(ctx context.Context)

	mu          sync.Mutex
	initCalls   int
	createCalls int
	lastConfig  *fhevm.InstanceConfig
}

func NewFakeRuntime(inst fhevm.Instance) *FakeRuntime {
	return &FakeRuntime{
		Instance:      inst,
		NetworkConfig: DefaultNetworkConfig(),
		InitResult:    true,
	}
}

// Exports returns the runtime surface as a host would expose it.
func (r *FakeRuntime) Exports() map[string]any {
	exports := map[string]any{
		"initSDK":        fhevm.InitSDKFunc(r.initSDK),
		"createInstance": fhevm.CreateInstanceFunc(r.createInstance),
		"SepoliaConfig":  r.NetworkConfig,
	}
	if r.Initialized != nil {
		exports["__initialized__"] = *r.Initialized
	}
	return exports
}

func (r *FakeRuntime) initSDK(ctx context.Context, _ *fhevm.InitOptions) (bool, error) {
	r.mu.Lock()
	r.initCalls++
	r.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return r.InitResult, r.InitErr
}

func (r *FakeRuntime) createInstance(ctx context.Context, cfg fhevm.InstanceConfig) (fhevm.Instance, error) {
	r.mu.Lock()
	r.createCalls++
	c := cfg
	r.lastConfig = &c
	r.mu.Unlock()

	if r.OnCreate != nil {
		r.OnCreate(ctx)
	}
	if r.CreateErr != nil {
		return nil, r.CreateErr
	}
	return r.Instance, nil
}

func (r *FakeRuntime) InitCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.initCalls
}

func (r *FakeRuntime) CreateCalls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createCalls
}

func (r *FakeRuntime) LastConfig() *fhevm.InstanceConfig {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastConfig
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
