package network

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"

	"github.com/haimbb47/SkillForge/fhevmClient/constant"
	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
)

// RelayerMetadata is what a mock node reports through fhevm_relayer_metadata.
type RelayerMetadata struct {
	ACLAddress           string `json:"ACLAddress"`
	InputVerifierAddress string `json:"InputVerifierAddress"`
	KMSVerifierAddress   string `json:"KMSVerifierAddress"`
}

// parseRelayerMetadata accepts the raw RPC result only when all three
// addresses are present as 0x-prefixed hex address strings.
func parseRelayerMetadata(raw json.RawMessage) (*RelayerMetadata, bool) {
	var fields map[string]interface{}
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return nil, false
	}

	get := func(key string) (string, bool) {
		s, ok := fields[key].(string)
		if !ok || !strings.HasPrefix(s, "0x") || !common.IsHexAddress(s) {
			return "", false
		}
		return s, true
	}

	acl, ok := get("ACLAddress")
	if !ok {
		return nil, false
	}
	input, ok := get("InputVerifierAddress")
	if !ok {
		return nil, false
	}
	kms, ok := get("KMSVerifierAddress")
	if !ok {
		return nil, false
	}

	return &RelayerMetadata{
		ACLAddress:           acl,
		InputVerifierAddress: input,
		KMSVerifierAddress:   kms,
	}, true
}

// Prober queries a node for the mock-specific RPC methods.
type Prober struct {
	logger zerolog.Logger
}

// NewProber creates a prober.
func NewProber(logger zerolog.Logger) *Prober {
	return &Prober{logger: logger.With().Str("component", "network_prober").Logger()}
}

// ClientVersion returns web3_clientVersion of the node at url.
func (p *Prober) ClientVersion(ctx context.Context, url string) (string, error) {
	var version string
	if err := p.call(ctx, url, &version, constant.MethodClientVersion); err != nil {
		return "", fherrors.NewNetworkUnreachableError(url, msgNotWeb3Node, err)
	}
	return version, nil
}

// RelayerMetadata returns the raw fhevm_relayer_metadata result of the node
// at url and whether it has the expected shape.
func (p *Prober) RelayerMetadata(ctx context.Context, url string) (*RelayerMetadata, bool, error) {
	var raw json.RawMessage
	if err := p.call(ctx, url, &raw, constant.MethodRelayerMetadata); err != nil {
		return nil, false, fherrors.NewNetworkUnreachableError(url, msgNotMockNode, err)
	}
	md, ok := parseRelayerMetadata(raw)
	return md, ok, nil
}

// TryFetchMockMetadata returns the relayer metadata of url if it is a hardhat
// node exposing well-formed metadata, and nil otherwise. An error means the
// node could not be queried at all.
func (p *Prober) TryFetchMockMetadata(ctx context.Context, url string) (*RelayerMetadata, error) {
	version, err := p.ClientVersion(ctx, url)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(strings.ToLower(version), constant.MockChainMarker) {
		p.logger.Debug().Str("url", url).Str("client_version", version).Msg("not a mock node")
		return nil, nil
	}

	md, ok, err := p.RelayerMetadata(ctx, url)
	if err != nil {
		return nil, err
	}
	if !ok {
		p.logger.Debug().Str("url", url).Msg("relayer metadata missing or malformed")
		return nil, nil
	}
	return md, nil
}

func (p *Prober) call(ctx context.Context, url string, result interface{}, method string) error {
	client, err := rpc.DialContext(ctx, url)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.CallContext(ctx, result, method)
}
