package network

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/haimbb47/SkillForge/fhevmClient/constant"
	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
)

const (
	msgNotWeb3Node = "is not a Web3 node or is not reachable. Please check the endpoint."
	msgNotMockNode = "is not a FHEVM Hardhat node or is not reachable. Please check the endpoint."
)

// DefaultMockChains returns the built-in mock chain table.
func DefaultMockChains() map[uint64]string {
	return map[uint64]string{
		constant.LocalDevChainID: constant.LocalDevRPCURL,
	}
}

// MergeMockChains overlays overrides on the built-in table. Overrides win.
func MergeMockChains(overrides map[uint64]string) map[uint64]string {
	merged := DefaultMockChains()
	for chainID, url := range overrides {
		merged[chainID] = url
	}
	return merged
}

// Resolver determines the chain id of a Target and classifies it as a mock
// or production network.
type Resolver struct {
	retry  *fherrors.RetryConfig
	logger zerolog.Logger
}

// NewResolver creates a resolver. A nil retry config uses the defaults.
func NewResolver(retry *fherrors.RetryConfig, logger zerolog.Logger) *Resolver {
	if retry == nil {
		retry = fherrors.DefaultRetryConfig()
	}
	r := &Resolver{
		logger: logger.With().Str("component", "network_resolver").Logger(),
	}

	cfg := *retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = func(attempt int, err error, wait time.Duration) {
			r.logger.Debug().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("retrying chain id query")
		}
	}
	r.retry = &cfg
	return r
}

// Resolve queries the chain id of target and checks it against the merged
// mock chain table. For a mock chain without an explicit URL the table's
// URL is used.
func (r *Resolver) Resolve(ctx context.Context, target Target, mockChains map[uint64]string) (*Descriptor, error) {
	if target.IsZero() {
		return nil, fherrors.NewValidationError("no provider or RPC URL to resolve")
	}

	chainID, err := r.ChainID(ctx, target)
	if err != nil {
		return nil, err
	}

	desc := &Descriptor{
		ChainID: chainID,
		RPCURL:  target.URL,
	}

	merged := MergeMockChains(mockChains)
	if url, ok := merged[chainID]; ok {
		desc.IsMock = true
		if desc.RPCURL == "" {
			desc.RPCURL = url
		}
	}

	r.logger.Debug().
		Uint64("chain_id", desc.ChainID).
		Bool("is_mock", desc.IsMock).
		Str("rpc_url", desc.RPCURL).
		Msg("network resolved")

	return desc, nil
}

// ChainID queries the chain id with retries. Failure is fatal to the caller
// and reported as a network unreachable error naming the target.
func (r *Resolver) ChainID(ctx context.Context, target Target) (uint64, error) {
	var chainID uint64
	err := fherrors.RetryWithConfig(ctx, func() error {
		id, err := r.queryChainID(ctx, target)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return fherrors.NewAbortError(ctxErr)
			}
			return fherrors.NewNetworkUnreachableError(target.String(), msgNotWeb3Node, err)
		}
		chainID = id
		return nil
	}, r.retry)
	if err != nil {
		r.logger.Warn().Err(err).Str("target", target.String()).Msg("failed to resolve chain id")
		return 0, err
	}
	return chainID, nil
}

func (r *Resolver) queryChainID(ctx context.Context, target Target) (uint64, error) {
	if target.Provider != nil {
		var result hexutil.Big
		if err := target.Provider.CallContext(ctx, &result, constant.MethodChainID); err != nil {
			return 0, err
		}
		return result.ToInt().Uint64(), nil
	}

	rpcClient, err := rpc.DialContext(ctx, target.URL)
	if err != nil {
		return 0, err
	}
	client := ethclient.NewClient(rpcClient)
	defer client.Close()

	id, err := client.ChainID(ctx)
	if err != nil {
		return 0, err
	}
	return id.Uint64(), nil
}
