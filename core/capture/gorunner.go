package capture

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/huangsam/impactcov/internal/contract"
	"github.com/huangsam/impactcov/schema"
	"golang.org/x/sync/errgroup"
)

var goTestName = regexp.MustCompile(`^Test[^a-z]\w*$|^Test$`)

// GoTest is one discovered top-level test function.
type GoTest struct {
	Package string
	Name    string
}

// ID is the coverage record test identifier.
func (t GoTest) ID() string {
	return t.Package + "/" + t.Name
}

// GoRunSummary aggregates a native Go capture run.
type GoRunSummary struct {
	Tests    int
	Failed   int
	Records  int
	Failures []Result // Captures that reported an error
}

// GoRunner captures per-test coverage for Go modules by running every test in
// its own `go test` process with a dedicated coverage profile.
type GoRunner struct {
	Root     string
	Packages []string
	Workers  int
	Kind     schema.AdapterKind
	Filter   *Filter
	Sink     Sink
	Runner   contract.ProcessRunner
	Env      []string
	Output   io.Writer // Test process output; nil discards it
	Logger   *slog.Logger
}

// NewGoRunner builds a runner from the project config. A provider adapter is
// only honored when the coverage tool is gocover; otherwise strict mode fails
// and lenient mode falls back to an unmapped run.
func NewGoRunner(root string, project *contract.ProjectConfig, workers int, filter *Filter, sink Sink,
	runner contract.ProcessRunner, env []string, strict bool, logger *slog.Logger) (*GoRunner, []string, error) {
	var warnings []string
	kind, ok := KindFor(schema.GoFramework, project.Coverage.Adapter)
	if !ok {
		return nil, nil, fmt.Errorf("unknown adapter kind %q", project.Coverage.Adapter)
	}
	if kind == schema.ProviderBased {
		if err := CheckProvider(project.Coverage.Tool, contract.GoCoverageTool, strict); err != nil {
			return nil, nil, err
		}
		if !strings.EqualFold(project.Coverage.Tool, contract.GoCoverageTool) {
			warnings = append(warnings, fmt.Sprintf(
				"Coverage tool set to %q. Per-test mapping requires %s; proceeding without per-test mapping.",
				project.Coverage.Tool, contract.GoCoverageTool))
			sink = nil
		}
	}
	packages := project.Packages
	if len(packages) == 0 {
		packages = []string{"./..."}
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &GoRunner{
		Root:     root,
		Packages: packages,
		Workers:  workers,
		Kind:     kind,
		Filter:   filter,
		Sink:     sink,
		Runner:   runner,
		Env:      env,
		Logger:   logger,
	}, warnings, nil
}

// Discover lists top-level tests with `go test -list`, keeping names that
// match pattern when it is set.
func (g *GoRunner) Discover(ctx context.Context, pattern string) ([]GoTest, error) {
	var match *regexp.Regexp
	if pattern != "" {
		var err error
		if match, err = regexp.Compile(pattern); err != nil {
			return nil, fmt.Errorf("invalid test pattern: %w", err)
		}
	}
	var stdout, stderr bytes.Buffer
	args := append([]string{"test", "-list", "."}, g.Packages...)
	code, err := g.Runner.Run(ctx, contract.ProcessSpec{Name: "go", Args: args, Dir: g.Root, Env: g.Env, Stdout: &stdout, Stderr: &stderr})
	if err != nil {
		return nil, err
	}
	if code != 0 {
		return nil, fmt.Errorf("go test -list exited %d: %s", code, strings.TrimSpace(stderr.String()))
	}
	tests := ParseTestList(stdout.String())
	if match == nil {
		return tests, nil
	}
	kept := tests[:0]
	for _, t := range tests {
		if match.MatchString(t.Name) {
			kept = append(kept, t)
		}
	}
	return kept, nil
}

// ParseTestList parses `go test -list .` output. Names are printed before
// the "ok <package>" line that closes each package.
func ParseTestList(out string) []GoTest {
	var tests []GoTest
	var pending []string
	scanner := bufio.NewScanner(strings.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		fields := strings.Fields(line)
		switch {
		case len(fields) == 0:
			continue
		case fields[0] == "ok" && len(fields) >= 2:
			for _, name := range pending {
				tests = append(tests, GoTest{Package: fields[1], Name: name})
			}
			pending = nil
		case fields[0] == "?" || fields[0] == "FAIL":
			pending = nil
		case len(fields) == 1 && goTestName.MatchString(fields[0]):
			pending = append(pending, fields[0])
		}
	}
	return tests
}

// Run captures every test in tests using Workers parallel workers. Test
// failures are counted, never returned as errors.
func (g *GoRunner) Run(ctx context.Context, tests []GoTest) (GoRunSummary, error) {
	summary := GoRunSummary{Tests: len(tests)}
	profileDir, err := os.MkdirTemp("", "impactcov-profiles-")
	if err != nil {
		return summary, fmt.Errorf("failed to create profile directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(profileDir) }()

	modulePath, err := ReadModulePath(g.Root)
	if err != nil {
		return summary, err
	}

	jobs := make(chan GoTest)
	var mu sync.Mutex
	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer close(jobs)
		for _, t := range tests {
			select {
			case jobs <- t:
			case <-egCtx.Done():
				return egCtx.Err()
			}
		}
		return nil
	})

	for w := range g.Workers {
		source := &ProfileCounterSource{
			ProfilePath: filepath.Join(profileDir, fmt.Sprintf("worker-%d.out", w)),
			ModulePath:  modulePath,
			ModuleDir:   g.Root,
		}
		execute := g.executor(egCtx, source, func(res Result, failed bool) {
			mu.Lock()
			defer mu.Unlock()
			summary.Records += len(res.Records)
			if failed {
				summary.Failed++
			}
			if !res.OK() {
				summary.Failures = append(summary.Failures, res)
			}
		})
		eg.Go(func() error {
			for t := range jobs {
				if err := egCtx.Err(); err != nil {
					return err
				}
				execute(t)
			}
			return nil
		})
	}
	err = eg.Wait()
	return summary, err
}

// executor returns a function running one test through the configured adapter.
func (g *GoRunner) executor(ctx context.Context, source *ProfileCounterSource, report func(Result, bool)) func(GoTest) {
	var protocol CaptureProtocol = noopProtocol{}
	if g.Sink != nil {
		protocol = NewProtocol(source, g.Filter, g.Sink, g.Logger)
	}
	var last Result
	onResult := func(res Result) { last = res }

	runOne := func(t GoTest) TestFunc {
		return func() error {
			code, err := g.Runner.Run(ctx, g.testSpec(t, source.ProfilePath))
			if err != nil {
				return err
			}
			if code != 0 {
				return fmt.Errorf("%s exited %d", t.ID(), code)
			}
			return nil
		}
	}

	switch g.Kind {
	case schema.SetupBased, schema.ProviderBased:
		lc := &sequentialLifecycle{}
		NewSetupAdapter(protocol, onResult).Install(lc)
		return func(t GoTest) {
			last = Result{}
			err := lc.run(TestCase{FullTitle: t.ID(), Title: t.Name}, runOne(t))
			g.logOutcome(t, err)
			report(last, err != nil)
		}
	default:
		hook := NewHookAdapter(protocol, onResult)
		return func(t GoTest) {
			last = Result{}
			err := hook.Wrap(TestCase{FullTitle: t.ID(), Title: t.Name}, runOne(t))()
			g.logOutcome(t, err)
			report(last, err != nil)
		}
	}
}

func (g *GoRunner) testSpec(t GoTest, profile string) contract.ProcessSpec {
	out := g.Output
	if out == nil {
		out = io.Discard
	}
	return contract.ProcessSpec{
		Name: "go",
		Args: []string{
			"test", "-count=1",
			"-run", "^" + regexp.QuoteMeta(t.Name) + "$",
			"-covermode=count",
			"-coverpkg=./...",
			"-coverprofile=" + profile,
			t.Package,
		},
		Dir:    g.Root,
		Env:    g.Env,
		Stdout: out,
		Stderr: out,
	}
}

func (g *GoRunner) logOutcome(t GoTest, err error) {
	if err != nil {
		g.Logger.Debug("test failed", "test", t.ID(), "error", err)
		return
	}
	g.Logger.Debug("test passed", "test", t.ID())
}

// sequentialLifecycle invokes registered callbacks around one test at a time.
type sequentialLifecycle struct {
	before []func()
	after  []func(TestCase)
}

func (l *sequentialLifecycle) BeforeEach(fn func()) { l.before = append(l.before, fn) }

func (l *sequentialLifecycle) AfterEach(fn func(TestCase)) { l.after = append(l.after, fn) }

func (l *sequentialLifecycle) run(tc TestCase, fn TestFunc) error {
	for _, before := range l.before {
		before()
	}
	defer func() {
		for _, after := range l.after {
			after(tc)
		}
	}()
	return fn()
}

// noopProtocol is used when per-test mapping is disabled.
type noopProtocol struct{}

func (noopProtocol) BeforeTest() error { return nil }

func (noopProtocol) AfterTest(testID string) Result { return Result{TestID: testID} }
