// Package network resolves which chain a session is bound to and whether that
// chain is a local mock node exposing relayer metadata.
package network

import (
	"context"
	"fmt"
)

// Provider is a live JSON-RPC connection, e.g. an injected wallet provider.
// *rpc.Client from go-ethereum satisfies it.
type Provider interface {
	CallContext(ctx context.Context, result interface{}, method string, args ...interface{}) error
}

// Target is what a session is built against: either a live Provider or an
// RPC URL to dial. Targets are compared with ==, so Provider implementations
// must be comparable (pointer types are).
type Target struct {
	Provider Provider
	URL      string
}

// URLTarget returns a Target that dials url.
func URLTarget(url string) Target {
	return Target{URL: url}
}

// ProviderTarget returns a Target backed by a live provider.
func ProviderTarget(p Provider) Target {
	return Target{Provider: p}
}

// IsZero reports whether neither a provider nor a URL is set.
func (t Target) IsZero() bool {
	return t.Provider == nil && t.URL == ""
}

func (t Target) String() string {
	switch {
	case t.Provider != nil:
		return fmt.Sprintf("provider(%T)", t.Provider)
	case t.URL != "":
		return t.URL
	default:
		return "<none>"
	}
}

// Descriptor is the result of resolving a Target.
type Descriptor struct {
	ChainID uint64 `json:"chain_id"`
	IsMock  bool   `json:"is_mock"`
	RPCURL  string `json:"rpc_url,omitempty"`
}
