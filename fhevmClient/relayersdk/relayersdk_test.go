package relayersdk

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
	"github.com/haimbb47/SkillForge/testutils"
)

func validExports() Exports {
	return testutils.NewFakeRuntime(testutils.NewFakeInstance(11155111)).Exports()
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(Exports)
		wantErr   bool
		wantTrace string
		wantInit  *bool
	}{
		{name: "valid", mutate: func(Exports) {}},
		{
			name:     "initialized true",
			mutate:   func(e Exports) { e[PropInitialized] = true },
			wantInit: testutils.BoolPtr(true),
		},
		{
			name:     "initialized false",
			mutate:   func(e Exports) { e[PropInitialized] = false },
			wantInit: testutils.BoolPtr(false),
		},
		{
			name:      "initialized not a bool",
			mutate:    func(e Exports) { e[PropInitialized] = "true" },
			wantErr:   true,
			wantTrace: "RelayerSDKLoader: relayerSDK.__initialized__ is invalid.",
		},
		{
			name:      "missing initSDK",
			mutate:    func(e Exports) { delete(e, PropInitSDK) },
			wantErr:   true,
			wantTrace: "RelayerSDKLoader: missing initSDK.",
		},
		{
			name:      "initSDK wrong type",
			mutate:    func(e Exports) { e[PropInitSDK] = 42 },
			wantErr:   true,
			wantTrace: "RelayerSDKLoader: relayerSDK.initSDK is invalid.",
		},
		{
			name:      "initSDK typed nil",
			mutate:    func(e Exports) { e[PropInitSDK] = fhevm.InitSDKFunc(nil) },
			wantErr:   true,
			wantTrace: "RelayerSDKLoader: relayerSDK.initSDK is invalid.",
		},
		{
			name: "initSDK as plain func",
			mutate: func(e Exports) {
				e[PropInitSDK] = func(context.Context, *fhevm.InitOptions) (bool, error) { return true, nil }
			},
		},
		{
			name:      "missing createInstance",
			mutate:    func(e Exports) { delete(e, PropCreateInstance) },
			wantErr:   true,
			wantTrace: "RelayerSDKLoader: missing createInstance.",
		},
		{
			name:      "createInstance wrong signature",
			mutate:    func(e Exports) { e[PropCreateInstance] = func() {} },
			wantErr:   true,
			wantTrace: "RelayerSDKLoader: relayerSDK.createInstance is invalid.",
		},
		{
			name:      "missing network config",
			mutate:    func(e Exports) { delete(e, PropNetworkConfig) },
			wantErr:   true,
			wantTrace: "RelayerSDKLoader: missing SepoliaConfig.",
		},
		{
			name: "network config by pointer",
			mutate: func(e Exports) {
				cfg := testutils.DefaultNetworkConfig()
				e[PropNetworkConfig] = &cfg
			},
		},
		{
			name:      "network config wrong type",
			mutate:    func(e Exports) { e[PropNetworkConfig] = "sepolia" },
			wantErr:   true,
			wantTrace: "RelayerSDKLoader: relayerSDK.SepoliaConfig is invalid.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exports := validExports()
			tt.mutate(exports)

			var traces []string
			capability, err := Check(exports, func(msg string) { traces = append(traces, msg) })
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, fherrors.Is(err, fherrors.ErrRuntime))
				assert.Nil(t, capability)
				assert.Equal(t, []string{tt.wantTrace}, traces)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, capability)
			assert.Empty(t, traces)
			assert.NotNil(t, capability.InitSDK)
			assert.NotNil(t, capability.CreateInstance)
			assert.Equal(t, testutils.DefaultNetworkConfig().ACLContractAddress, capability.NetworkConfig.ACLContractAddress)
			assert.Equal(t, tt.wantInit, capability.Initialized)
		})
	}
}

func TestCheck_NilExportsAndNilTrace(t *testing.T) {
	_, err := Check(nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relayerSDK is not available")
}

func TestHandle(t *testing.T) {
	h := NewHandle()
	assert.False(t, h.IsLoaded(nil))
	assert.Error(t, h.SetInitialized(true))

	exports := validExports()
	h.Install(exports)
	assert.True(t, h.IsLoaded(nil))

	require.NoError(t, h.SetInitialized(true))
	capability, err := h.Capability(nil)
	require.NoError(t, err)
	assert.True(t, capability.IsInitialized())

	// The caller's map is copied on install.
	_, present := exports[PropInitialized]
	assert.False(t, present)

	h.Install(nil)
	assert.False(t, h.IsLoaded(nil))
}

func TestLoader_NoSourceIsEnvironmentError(t *testing.T) {
	l := NewLoader(NewHandle(), nil, "https://cdn.example/sdk.js", nil, zerolog.Nop())
	err := l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, fherrors.Is(err, fherrors.ErrEnvironment))
	assert.False(t, l.IsLoaded())
}

func TestLoader_LoadsOnceForConcurrentCallers(t *testing.T) {
	var fetches atomic.Int32
	release := make(chan struct{})
	source := SourceFunc(func(ctx context.Context, url string) (Exports, error) {
		fetches.Add(1)
		<-release
		return validExports(), nil
	})

	l := NewLoader(NewHandle(), source, "https://cdn.example/sdk.js", nil, zerolog.Nop())

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- l.Load(context.Background())
		}()
	}

	// Give every caller time to join the in-flight load.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), fetches.Load())
	assert.True(t, l.IsLoaded())

	// Already loaded: no further fetch.
	require.NoError(t, l.Load(context.Background()))
	assert.Equal(t, int32(1), fetches.Load())
}

func TestLoader_FetchError(t *testing.T) {
	source := SourceFunc(func(context.Context, string) (Exports, error) {
		return nil, errors.New("404")
	})
	l := NewLoader(NewHandle(), source, "https://cdn.example/sdk.js", nil, zerolog.Nop())

	err := l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, fherrors.Is(err, fherrors.ErrRuntime))
	assert.Contains(t, err.Error(), "https://cdn.example/sdk.js")
	assert.False(t, l.IsLoaded())
}

func TestLoader_InvalidExportsAreNotInstalled(t *testing.T) {
	var traces []string
	bad := validExports()
	delete(bad, PropCreateInstance)

	l := NewLoader(NewHandle(), StaticSource(bad), "https://cdn.example/sdk.js",
		func(msg string) { traces = append(traces, msg) }, zerolog.Nop())

	err := l.Load(context.Background())
	require.Error(t, err)
	assert.True(t, fherrors.Is(err, fherrors.ErrRuntime))
	assert.False(t, l.IsLoaded())
	assert.Contains(t, traces, "RelayerSDKLoader: missing createInstance.")
}

func TestLoader_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	source := SourceFunc(func(context.Context, string) (Exports, error) {
		<-release
		return validExports(), nil
	})
	l := NewLoader(NewHandle(), source, "https://cdn.example/sdk.js", nil, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := l.Load(ctx)
	require.Error(t, err)
	assert.True(t, fherrors.IsAbort(err))
}
