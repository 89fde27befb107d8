package cli

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/runnerr0/streamtally/internal/config"
	"github.com/runnerr0/streamtally/internal/filter"
	"github.com/runnerr0/streamtally/internal/report"
	"github.com/runnerr0/streamtally/internal/storage"
	"github.com/runnerr0/streamtally/internal/tally"
)

// dimensionNames lists the report dimensions in help order.
var dimensionNames = []string{"languages", "content", "hashtags", "tracked", "countries", "mentions"}

// Execute implements the go-flags Commander interface for ReportCommand.
func (c *ReportCommand) Execute(args []string) error {
	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}

	ctx := context.Background()
	store, err := storage.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer store.Close()

	return c.executeWithStore(ctx, cfg, store)
}

// executeWithStore runs the report against a provided store (for testing).
func (c *ReportCommand) executeWithStore(ctx context.Context, cfg *config.Config, store storage.Scanner) error {
	dim, err := c.dimension(cfg)
	if err != nil {
		return err
	}
	mode, err := c.mode()
	if err != nil {
		return err
	}
	kind, err := report.ParseKind(c.Chart)
	if err != nil {
		return err
	}
	groups, err := parseGroups(c.Group)
	if err != nil {
		return err
	}

	table, err := tally.Query(ctx, store, dim, tally.Options{Mode: mode})
	if err != nil {
		return fmt.Errorf("query %s: %w", dim.Name, err)
	}
	if len(groups) > 0 {
		table = tally.Group(table, groups)
	}
	if c.Others > 0 {
		table = tally.Collapse(table, c.Others, "Others")
	}

	top := c.Top
	if top == 0 {
		top = cfg.Report.Top
	}
	if c.Others > 0 {
		top = 0
	}
	chart := report.Chart{Kind: kind, TopN: top, Title: c.Title}

	if c.globals != nil && c.globals.JSON {
		return report.RenderJSON(os.Stdout, table, chart)
	}
	return report.Render(os.Stdout, table, chart)
}

func (c *ReportCommand) dimension(cfg *config.Config) (tally.Dimension, error) {
	name := strings.ToLower(c.Args.Dimension)
	if c.Country != "" && name != "hashtags" {
		return tally.Dimension{}, fmt.Errorf("--country only applies to the hashtags report")
	}

	switch name {
	case "languages":
		return tally.Languages(), nil
	case "content":
		return tally.ContentTypes(), nil
	case "hashtags":
		if c.Country != "" {
			return tally.HashtagsInCountry(c.Country), nil
		}
		return tally.Hashtags(), nil
	case "tracked":
		track := c.Track
		if len(track) == 0 {
			track = cfg.Stream.Track
		}
		set, err := filter.New(track)
		if err != nil {
			return tally.Dimension{}, fmt.Errorf("tracked report: %w", err)
		}
		return tally.TrackedHashtags(set), nil
	case "countries":
		return tally.Countries(), nil
	case "mentions":
		return tally.Mentions(), nil
	default:
		return tally.Dimension{}, fmt.Errorf("unknown dimension %q (want one of %s)", c.Args.Dimension, strings.Join(dimensionNames, ", "))
	}
}

// mode picks the percentage base. Most posts carry no place, so countries
// default to all scanned events.
func (c *ReportCommand) mode() (tally.Mode, error) {
	if c.Denominator != "" {
		return tally.ParseMode(c.Denominator)
	}
	if strings.ToLower(c.Args.Dimension) == "countries" {
		return tally.AllScanned, nil
	}
	return tally.ContributingOnly, nil
}

// parseGroups reads --group values of the form "name=member,member".
func parseGroups(specs []string) (map[string][]string, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	groups := make(map[string][]string, len(specs))
	owner := make(map[string]string)
	for _, s := range specs {
		name, members, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" || strings.TrimSpace(members) == "" {
			return nil, fmt.Errorf("invalid group %q (want name=member,member)", s)
		}
		for _, m := range strings.Split(members, ",") {
			m = strings.TrimSpace(m)
			if m == "" {
				continue
			}
			if prev, ok := owner[m]; ok {
				if prev == name {
					continue
				}
				return nil, fmt.Errorf("label %q is in both group %q and group %q", m, prev, name)
			}
			owner[m] = name
			groups[name] = append(groups[name], m)
		}
	}
	return groups, nil
}
