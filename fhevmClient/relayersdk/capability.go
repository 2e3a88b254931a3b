// Package relayersdk loads the relayer runtime into an injected host slot and
// validates the capability surface it exposes before anyone uses it.
package relayersdk

import (
	"context"
	"fmt"

	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
	"github.com/haimbb47/SkillForge/fhevmClient/fhevm"
)

// Property names of the runtime's exported surface.
const (
	PropInitSDK        = "initSDK"
	PropCreateInstance = "createInstance"
	PropNetworkConfig  = "SepoliaConfig"
	PropInitialized    = "__initialized__"
)

const tracePrefix = "RelayerSDKLoader: "

// Exports is the raw surface a runtime bundle installs into the host.
type Exports map[string]any

// TraceFunc receives diagnostic messages. It may be nil.
type TraceFunc func(msg string)

func (t TraceFunc) emit(format string, args ...any) string {
	msg := tracePrefix + fmt.Sprintf(format, args...)
	if t != nil {
		t(msg)
	}
	return msg
}

// Check validates exports structurally and returns the typed capability.
// Every failure is traced and returned as a runtime error carrying the
// same message.
func Check(exports Exports, trace TraceFunc) (*fhevm.Capability, error) {
	if exports == nil {
		return nil, fherrors.NewRuntimeError(trace.emit("relayerSDK is not available."), nil)
	}

	capability := &fhevm.Capability{}

	switch fn := exports[PropInitSDK].(type) {
	case nil:
		return nil, fherrors.NewRuntimeError(trace.emit("missing %s.", PropInitSDK), nil)
	case fhevm.InitSDKFunc:
		capability.InitSDK = fn
	case func(context.Context, *fhevm.InitOptions) (bool, error):
		capability.InitSDK = fn
	default:
		return nil, fherrors.NewRuntimeError(trace.emit("relayerSDK.%s is invalid.", PropInitSDK), nil)
	}
	if capability.InitSDK == nil {
		return nil, fherrors.NewRuntimeError(trace.emit("relayerSDK.%s is invalid.", PropInitSDK), nil)
	}

	switch fn := exports[PropCreateInstance].(type) {
	case nil:
		return nil, fherrors.NewRuntimeError(trace.emit("missing %s.", PropCreateInstance), nil)
	case fhevm.CreateInstanceFunc:
		capability.CreateInstance = fn
	case func(context.Context, fhevm.InstanceConfig) (fhevm.Instance, error):
		capability.CreateInstance = fn
	default:
		return nil, fherrors.NewRuntimeError(trace.emit("relayerSDK.%s is invalid.", PropCreateInstance), nil)
	}
	if capability.CreateInstance == nil {
		return nil, fherrors.NewRuntimeError(trace.emit("relayerSDK.%s is invalid.", PropCreateInstance), nil)
	}

	switch cfg := exports[PropNetworkConfig].(type) {
	case nil:
		return nil, fherrors.NewRuntimeError(trace.emit("missing %s.", PropNetworkConfig), nil)
	case fhevm.NetworkConfig:
		capability.NetworkConfig = cfg
	case *fhevm.NetworkConfig:
		if cfg == nil {
			return nil, fherrors.NewRuntimeError(trace.emit("relayerSDK.%s is invalid.", PropNetworkConfig), nil)
		}
		capability.NetworkConfig = *cfg
	default:
		return nil, fherrors.NewRuntimeError(trace.emit("relayerSDK.%s is invalid.", PropNetworkConfig), nil)
	}

	if raw, ok := exports[PropInitialized]; ok {
		initialized, isBool := raw.(bool)
		if !isBool {
			return nil, fherrors.NewRuntimeError(trace.emit("relayerSDK.%s is invalid.", PropInitialized), nil)
		}
		capability.Initialized = &initialized
	}

	return capability, nil
}
