// Package session builds fhevm instances: it resolves the network, takes the
// mock path when a local node publishes relayer metadata, and otherwise
// loads and initializes the relayer runtime and constructs a production
// instance with cached key material.
package session

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/haimbb47/SkillForge/fhevmClient/constant"
	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
	"github.com/haimbb47/SkillForge/fhevmClient/keycache"
	"github.com/haimbb47/SkillForge/fhevmClient/network"
	"github.com/haimbb47/SkillForge/fhevmClient/relayersdk"
)

// MockBuilder constructs an instance against a local mock node.
type MockBuilder interface {
	Build(ctx context.Context, desc *network.Descriptor, metadata *network.RelayerMetadata) (fhevm.Instance, error)
}

// MockBuilderFunc adapts a function to MockBuilder.
type MockBuilderFunc func(ctx context.Context, desc *network.Descriptor, metadata *network.RelayerMetadata) (fhevm.Instance, error)

func (f MockBuilderFunc) Build(ctx context.Context, desc *network.Descriptor, metadata *network.RelayerMetadata) (fhevm.Instance, error) {
	return f(ctx, desc, metadata)
}

// CreateParams are the inputs of one construction.
type CreateParams struct {
	Target         network.Target
	MockChains     map[uint64]string
	OnStatusChange StatusFunc
}

// FactoryConfig wires a Factory. Cache and MockBuilder may be nil.
type FactoryConfig struct {
	Resolver    *network.Resolver
	Prober      *network.Prober
	Loader      *relayersdk.Loader
	Cache       *keycache.Cache
	MockBuilder MockBuilder
	Trace       relayersdk.TraceFunc
	Logger      zerolog.Logger
}

// Factory creates fhevm instances. It holds no per-construction state and
// is safe for concurrent use.
type Factory struct {
	resolver *network.Resolver
	prober   *network.Prober
	loader   *relayersdk.Loader
	cache    *keycache.Cache
	mock     MockBuilder
	trace    relayersdk.TraceFunc
	logger   zerolog.Logger
}

// NewFactory creates a factory. A nil Resolver or Prober gets a default one.
func NewFactory(cfg FactoryConfig) *Factory {
	logger := cfg.Logger.With().Str("component", "session_factory").Logger()
	f := &Factory{
		resolver: cfg.Resolver,
		prober:   cfg.Prober,
		loader:   cfg.Loader,
		cache:    cfg.Cache,
		mock:     cfg.MockBuilder,
		trace:    cfg.Trace,
		logger:   logger,
	}
	if f.resolver == nil {
		f.resolver = network.NewResolver(nil, cfg.Logger)
	}
	if f.prober == nil {
		f.prober = network.NewProber(cfg.Logger)
	}
	return f
}

// Create builds an instance for p.Target. It returns an abort error as soon
// as ctx is observed cancelled and performs no side effects after that.
func (f *Factory) Create(ctx context.Context, p CreateParams) (fhevm.Instance, error) {
	if err := fherrors.AbortIfDone(ctx); err != nil {
		return nil, err
	}

	desc, err := f.resolver.Resolve(ctx, p.Target, p.MockChains)
	if err != nil {
		return nil, err
	}
	if err := fherrors.AbortIfDone(ctx); err != nil {
		return nil, err
	}

	if desc.IsMock && desc.RPCURL != "" {
		inst, ok, err := f.tryCreateMock(ctx, desc, p.OnStatusChange)
		if err != nil || ok {
			return inst, err
		}
	}

	return f.createProduction(ctx, p.Target, p.OnStatusChange)
}

// tryCreateMock returns ok=false when the node publishes no usable metadata
// and the production path should be taken instead.
func (f *Factory) tryCreateMock(ctx context.Context, desc *network.Descriptor, notify StatusFunc) (fhevm.Instance, bool, error) {
	metadata, err := f.prober.TryFetchMockMetadata(ctx, desc.RPCURL)
	if abortErr := fherrors.AbortIfDone(ctx); abortErr != nil {
		return nil, true, abortErr
	}
	if err != nil {
		f.logger.Warn().Err(err).Str("rpc_url", desc.RPCURL).Msg("mock metadata discovery failed, using production path")
		return nil, false, nil
	}
	if metadata == nil {
		return nil, false, nil
	}
	if f.mock == nil {
		return nil, true, fherrors.NewRuntimeError("node at "+desc.RPCURL+" publishes relayer metadata but no mock instance builder is configured", nil)
	}

	f.logger.Info().
		Uint64("chain_id", desc.ChainID).
		Str("rpc_url", desc.RPCURL).
		Str("acl_address", metadata.ACLAddress).
		Msg("creating mock fhevm instance")

	notify.notify(StatusCreating)
	inst, err := f.mock.Build(ctx, desc, metadata)
	if abortErr := fherrors.AbortIfDone(ctx); abortErr != nil {
		return nil, true, abortErr
	}
	if err != nil {
		return nil, true, fherrors.NewRuntimeError("failed to create mock fhevm instance", err)
	}
	return inst, true, nil
}

func (f *Factory) createProduction(ctx context.Context, target network.Target, notify StatusFunc) (fhevm.Instance, error) {
	if f.loader == nil {
		return nil, fherrors.NewEnvironmentError("no relayer SDK loader configured")
	}

	if !f.loader.IsLoaded() {
		notify.notify(StatusSDKLoading)
		if err := f.loader.Load(ctx); err != nil {
			return nil, err
		}
		if err := fherrors.AbortIfDone(ctx); err != nil {
			return nil, err
		}
		notify.notify(StatusSDKLoaded)
	}

	handle := f.loader.Handle()
	capability, err := handle.Capability(f.trace)
	if err != nil {
		return nil, err
	}

	if !capability.IsInitialized() {
		notify.notify(StatusSDKInitializing)
		initialized, err := capability.InitSDK(ctx, &fhevm.InitOptions{})
		if abortErr := fherrors.AbortIfDone(ctx); abortErr != nil {
			return nil, abortErr
		}
		if err != nil {
			return nil, fherrors.NewRuntimeError("relayer SDK initialization failed", err)
		}
		if setErr := handle.SetInitialized(initialized); setErr != nil {
			return nil, setErr
		}
		if !initialized {
			return nil, fherrors.NewRuntimeError("relayer SDK initialization returned false", nil)
		}
		notify.notify(StatusSDKInitialized)
	}

	aclAddress := capability.NetworkConfig.ACLContractAddress
	if !common.IsHexAddress(aclAddress) {
		return nil, fherrors.NewInvalidAddressError(aclAddress)
	}

	material := f.cache.Get(ctx, aclAddress)
	if err := fherrors.AbortIfDone(ctx); err != nil {
		return nil, err
	}

	cfg := fhevm.InstanceConfig{
		NetworkConfig: capability.NetworkConfig,
		Network:       target,
		PublicKey:     material.PublicKey,
		PublicParams:  material.PublicParams,
	}

	notify.notify(StatusCreating)
	inst, err := capability.CreateInstance(ctx, cfg)
	if abortErr := fherrors.AbortIfDone(ctx); abortErr != nil {
		return nil, abortErr
	}
	if err != nil {
		return nil, fherrors.NewRuntimeError("failed to create fhevm instance", err)
	}

	if err := f.cache.Set(ctx, aclAddress, inst.GetPublicKey(), inst.GetPublicParams(constant.PublicParamsSize)); err != nil {
		f.logger.Warn().Err(err).Str("acl_address", aclAddress).Msg("failed to cache key material")
	}

	f.logger.Info().Str("acl_address", aclAddress).Msg("fhevm instance created")
	return inst, nil
}
