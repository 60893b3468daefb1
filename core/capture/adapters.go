package capture

import (
	"errors"
	"fmt"
	"strings"

	"github.com/huangsam/impactcov/schema"
)

// UnknownTestID is used when a runner exposes no identifying information.
const UnknownTestID = "unknown"

// TestCase is what a runner knows about the test that just ran.
type TestCase struct {
	FullTitle string // Suite path plus test name, when available
	Title     string
}

// ResolveTestID prefers the full title, then the bare title, then "unknown".
func ResolveTestID(tc TestCase) string {
	if id := strings.TrimSpace(tc.FullTitle); id != "" {
		return id
	}
	if id := strings.TrimSpace(tc.Title); id != "" {
		return id
	}
	return UnknownTestID
}

// CaptureProtocol is the shared contract every adapter drives.
type CaptureProtocol interface {
	BeforeTest() error
	AfterTest(testID string) Result
}

var _ CaptureProtocol = &Protocol{} // Compile-time check

// TestFunc executes one test and reports its outcome.
type TestFunc func() error

// HookAdapter wraps a runner's single "execute one test" extension point.
type HookAdapter struct {
	protocol CaptureProtocol
	onResult func(Result)
}

// NewHookAdapter creates a hook-based adapter. onResult may be nil.
func NewHookAdapter(protocol CaptureProtocol, onResult func(Result)) *HookAdapter {
	return &HookAdapter{protocol: protocol, onResult: onResult}
}

// Wrap returns a test function that resets before and captures after run,
// whether run fails, succeeds, or panics. The test's own outcome is returned
// unchanged.
func (a *HookAdapter) Wrap(tc TestCase, run TestFunc) TestFunc {
	return func() (err error) {
		_ = a.protocol.BeforeTest()
		defer func() {
			res := a.protocol.AfterTest(ResolveTestID(tc))
			if a.onResult != nil {
				a.onResult(res)
			}
		}()
		return run()
	}
}

// Lifecycle is a runner's pair of per-test callbacks.
type Lifecycle interface {
	BeforeEach(fn func())
	AfterEach(fn func(TestCase))
}

// SetupAdapter registers independent before/after callbacks, relying on the
// runner to invoke them in per-test pairs.
type SetupAdapter struct {
	protocol CaptureProtocol
	onResult func(Result)
}

// NewSetupAdapter creates a setup-based adapter. onResult may be nil.
func NewSetupAdapter(protocol CaptureProtocol, onResult func(Result)) *SetupAdapter {
	return &SetupAdapter{protocol: protocol, onResult: onResult}
}

// Install registers the reset and capture callbacks.
func (a *SetupAdapter) Install(lc Lifecycle) {
	lc.BeforeEach(func() { _ = a.protocol.BeforeTest() })
	lc.AfterEach(func(tc TestCase) {
		res := a.protocol.AfterTest(ResolveTestID(tc))
		if a.onResult != nil {
			a.onResult(res)
		}
	})
}

// ErrIncompatibleProvider is returned when the runner's coverage engine does
// not use the counter convention the protocol understands.
var ErrIncompatibleProvider = errors.New("incompatible coverage provider")

// ProviderAdapter is a setup-based adapter gated on the runner's coverage
// engine matching the required counter convention.
type ProviderAdapter struct {
	*SetupAdapter
	Provider string
	Required string
}

// NewProviderAdapter checks provider compatibility. On a mismatch it returns
// (nil, nil) so the caller degrades to an unmapped run, or an error wrapping
// ErrIncompatibleProvider when strict is set.
func NewProviderAdapter(protocol CaptureProtocol, onResult func(Result), provider, required string, strict bool) (*ProviderAdapter, error) {
	if err := CheckProvider(provider, required, strict); err != nil {
		return nil, err
	}
	if !strings.EqualFold(provider, required) {
		return nil, nil
	}
	return &ProviderAdapter{SetupAdapter: NewSetupAdapter(protocol, onResult), Provider: provider, Required: required}, nil
}

// CheckProvider returns an error only for a strict mismatch.
func CheckProvider(provider, required string, strict bool) error {
	if strings.EqualFold(provider, required) || !strict {
		return nil
	}
	return fmt.Errorf("%w: per-test coverage requires coverage provider '%s', but got '%s'. Aborting due to --strict-provider",
		ErrIncompatibleProvider, required, provider)
}

// KindFor returns the adapter kind configured for a framework, honoring an
// explicit override.
func KindFor(framework schema.Framework, override string) (schema.AdapterKind, bool) {
	if override != "" {
		kind := schema.AdapterKind(override)
		_, ok := schema.ValidAdapterKinds[kind]
		return kind, ok
	}
	kind, ok := schema.DefaultAdapterKinds[framework]
	return kind, ok
}
