package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Ingest *IngestCommand
	Status *StatusCommand
	Report *ReportCommand
	Purge  *PurgeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "streamtally"
	parser.LongDescription = "Collect hashtag-filtered posts from a live stream and tabulate what was said, where and how."

	cmds := &commands{
		Ingest: &IngestCommand{globals: &globals, version: version},
		Status: &StatusCommand{globals: &globals, version: version},
		Report: &ReportCommand{globals: &globals, version: version},
		Purge:  &PurgeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("ingest", "Collect posts from the stream", "Subscribe to the post stream for the tracked hashtags and store every post received. Stops on SIGINT/SIGTERM, after --duration, or when the stream ends.", cmds.Ingest)
	parser.AddCommand("status", "Show stored events and the last session", "Show the number of stored events, the storage backend and the summary of the last ingest session.", cmds.Status)
	parser.AddCommand("report", "Tabulate stored posts", "Count stored posts by language, content type, hashtag, tracked hashtag, country or mentioned user and draw a chart.", cmds.Report)
	parser.AddCommand("purge", "Delete ALL stored posts", "Delete every stored post. Destructive operation with safety prompt.", cmds.Purge)

	return parser, &globals, cmds
}

// Run is the main entry point for the streamtally CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("streamtally %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
