package cli

import (
	"io"

	"github.com/runnerr0/streamtally/internal/storage"
	"github.com/runnerr0/streamtally/internal/stream"
)

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	Backend string `long:"backend" description:"Override storage backend: sqlite | mongo | postgres | redis | memory"`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable debug logging"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// IngestCommand subscribes to the post stream and stores what arrives.
type IngestCommand struct {
	Provider    string   `long:"provider" description:"Stream provider: http | kafka | file"`
	Track       []string `long:"track" description:"Hashtag to track (repeatable)"`
	File        string   `long:"file" description:"NDJSON file to replay with the file provider (- for stdin)"`
	Duration    string   `long:"duration" description:"Stop after this long (e.g., 30m, 2h, 1d)"`
	MetricsAddr string   `long:"metrics-addr" description:"Serve Prometheus metrics on this address"`

	globals  *GlobalFlags
	version  string
	store    storage.Store   // injectable for testing; nil means open the configured store
	provider stream.Provider // injectable for testing; nil means build from config
}

// StatusCommand shows stored event count and the last ingest session.
type StatusCommand struct {
	globals *GlobalFlags
	version string
}

// ReportCommand tabulates stored posts along one dimension.
type ReportCommand struct {
	Top         int      `long:"top" description:"Number of rows to show (0 uses report.top from config)"`
	Chart       string   `long:"chart" description:"Chart kind: bar | hbar | pie" default:"hbar"`
	Denominator string   `long:"denominator" description:"Percentage base: contributing | all (default depends on dimension)"`
	Country     string   `long:"country" description:"Restrict the hashtags report to posts placed in this country"`
	Others      int      `long:"others" description:"Keep N rows and fold the rest into Others"`
	Title       string   `long:"title" description:"Chart title"`
	Track       []string `long:"track" description:"Hashtags for the tracked report (defaults to stream.track)"`
	Group       []string `long:"group" description:"Merge labels into one row, as name=label,label (repeatable)"`

	Args struct {
		Dimension string `positional-arg-name:"dimension" description:"languages | content | hashtags | tracked | countries | mentions"`
	} `positional-args:"yes" required:"yes"`

	globals *GlobalFlags
	version string
}

// PurgeCommand deletes every stored event with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	store   storage.Store // injectable for testing; nil means open the configured store
	in      io.Reader     // confirmation input; nil means stdin
}
