package relayersdk

import (
	"context"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	fherrors "github.com/haimbb47/SkillForge/fhevmClient/errors"
)

// BundleSource produces the runtime exports published at url.
type BundleSource interface {
	Fetch(ctx context.Context, url string) (Exports, error)
}

// SourceFunc adapts a function to BundleSource.
type SourceFunc func(ctx context.Context, url string) (Exports, error)

func (f SourceFunc) Fetch(ctx context.Context, url string) (Exports, error) {
	return f(ctx, url)
}

// StaticSource always returns exports, for runtimes linked into the binary.
func StaticSource(exports Exports) BundleSource {
	return SourceFunc(func(context.Context, string) (Exports, error) {
		return exports, nil
	})
}

const loadKey = "relayer-sdk"

// Loader installs the runtime into a Handle at most once at a time.
// Concurrent Load calls share one in-flight fetch.
type Loader struct {
	handle *Handle
	source BundleSource
	url    string
	trace  TraceFunc
	logger zerolog.Logger
	group  singleflight.Group
}

// NewLoader creates a loader. A nil source means the host cannot load
// runtime bundles, and Load fails with an environment error.
func NewLoader(handle *Handle, source BundleSource, url string, trace TraceFunc, logger zerolog.Logger) *Loader {
	return &Loader{
		handle: handle,
		source: source,
		url:    url,
		trace:  trace,
		logger: logger.With().Str("component", "relayer_sdk_loader").Logger(),
	}
}

// Handle returns the slot this loader installs into.
func (l *Loader) Handle() *Handle {
	return l.handle
}

// IsLoaded reports whether the slot holds a structurally valid runtime.
func (l *Loader) IsLoaded() bool {
	return l.handle.IsLoaded(l.trace)
}

// Load fetches and installs the runtime unless it is already loaded.
// Cancelling ctx stops the caller waiting but does not abort a fetch other
// callers may share.
func (l *Loader) Load(ctx context.Context) error {
	if l.source == nil {
		return fherrors.NewEnvironmentError("relayer SDK can only be loaded by a host with a bundle source")
	}
	if l.IsLoaded() {
		return nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := l.group.DoChan(loadKey, func() (interface{}, error) {
		if l.IsLoaded() {
			return nil, nil
		}

		l.logger.Info().Str("url", l.url).Msg("loading relayer SDK")
		exports, err := l.source.Fetch(fetchCtx, l.url)
		if err != nil {
			return nil, fherrors.NewRuntimeError("failed to load relayer SDK from "+l.url, err)
		}

		l.handle.Install(exports)
		if _, err := l.handle.Capability(l.trace); err != nil {
			l.handle.Install(nil)
			return nil, fherrors.NewRuntimeError("relayer SDK loaded from "+l.url+" but its exports are invalid", err)
		}

		l.logger.Info().Str("url", l.url).Msg("relayer SDK loaded")
		return nil, nil
	})

	select {
	case <-ctx.Done():
		return fherrors.NewAbortError(ctx.Err())
	case res := <-ch:
		return res.Err
	}
}
