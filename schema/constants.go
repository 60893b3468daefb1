package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for run history.
	DatabaseBackend string

	// AdapterKind is the integration strategy used for per-test capture.
	AdapterKind string

	// Framework is a supported test runner.
	Framework string

	// RunKind labels a tracked history run.
	RunKind string
)

// All output modes supported.
const (
	CSVOut  OutputMode = "csv"
	TextOut OutputMode = "text" // default
	JSONOut OutputMode = "json"
)

// All history backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All adapter kinds supported.
const (
	HookBased     AdapterKind = "hook"
	SetupBased    AdapterKind = "setup"
	ProviderBased AdapterKind = "provider"
)

// All frameworks recognized by capture.
const (
	MochaFramework   Framework = "mocha"
	JestFramework    Framework = "jest"
	VitestFramework  Framework = "vitest"
	GoFramework      Framework = "go"
	UnknownFramework Framework = ""
)

// All history run kinds.
const (
	CoverRun RunKind = "cover"
	TestRun  RunKind = "run"
)

// Process exit statuses with a defined meaning.
const (
	ExitFatal              = 1
	ExitDiffCoverageFailed = 2
	ExitProviderMismatch   = 3
	ExitUploadFailed       = 11
)

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	CSVOut:  {},
	TextOut: {},
	JSONOut: {},
}

// ValidDatabaseBackends lists all valid history backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidAdapterKinds lists all valid adapter kinds.
var ValidAdapterKinds = map[AdapterKind]struct{}{
	HookBased:     {},
	SetupBased:    {},
	ProviderBased: {},
}

// DefaultAdapterKinds maps each framework to the adapter flavor its runner supports.
var DefaultAdapterKinds = map[Framework]AdapterKind{
	MochaFramework:  HookBased,
	JestFramework:   SetupBased,
	VitestFramework: ProviderBased,
	GoFramework:     HookBased,
}
