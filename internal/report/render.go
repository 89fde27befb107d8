// Package report renders frequency tables as terminal charts or JSON.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/runnerr0/streamtally/internal/tally"
)

// Kind is a chart type.
type Kind string

const (
	// Bar draws vertical columns in descending order with a numbered legend.
	Bar Kind = "bar"
	// HBar draws one horizontal bar per row, smallest first.
	HBar Kind = "hbar"
	// Pie lists each row's share of the denominator.
	Pie Kind = "pie"
)

// Kinds lists the accepted chart kinds.
var Kinds = []Kind{Bar, HBar, Pie}

// ParseKind validates a chart kind name.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown chart kind %q (want bar, hbar or pie)", s)
}

// Chart configures rendering.
type Chart struct {
	Kind Kind
	// TopN limits the rows drawn. Zero draws every row of the table.
	TopN  int
	Title string
	// Width is the longest bar in characters. Zero means 40.
	Width int
}

const (
	defaultWidth = 40
	columnHeight = 10
	maxLabel     = 24
	fill         = "█"
)

// Render writes t as a text chart.
func Render(w io.Writer, t *tally.Table, c Chart) error {
	t = t.Top(c.TopN)
	r := &renderer{w: w, t: t, c: c}
	if r.c.Width <= 0 {
		r.c.Width = defaultWidth
	}

	r.title()
	if len(t.Entries) == 0 {
		r.printf("(no data)\n")
	} else {
		switch c.Kind {
		case Bar, "":
			r.columns()
		case HBar:
			r.bars()
		case Pie:
			r.pie()
		default:
			return fmt.Errorf("unknown chart kind %q", c.Kind)
		}
	}
	r.footer()
	return r.err
}

type renderer struct {
	w   io.Writer
	t   *tally.Table
	c   Chart
	err error
}

func (r *renderer) printf(format string, args ...any) {
	if r.err != nil {
		return
	}
	_, r.err = fmt.Fprintf(r.w, format, args...)
}

func (r *renderer) title() {
	title := r.c.Title
	if title == "" {
		title = r.t.Dimension
	}
	if title == "" {
		return
	}
	r.printf("%s\n%s\n", title, strings.Repeat("=", utf8.RuneCountInString(title)))
}

func (r *renderer) footer() {
	mode := "contributing events"
	if r.t.Mode == tally.AllScanned {
		mode = "all scanned events"
	}
	r.printf("\n%d events scanned, %d contributing; percentages of %s (%d)\n",
		r.t.Scanned, r.t.Contributing, mode, r.t.Denominator())
}

func (r *renderer) maxCount() int64 {
	var m int64
	for _, e := range r.t.Entries {
		if e.Count > m {
			m = e.Count
		}
	}
	return m
}

// scale maps count onto 0..size, giving every non-zero count at least one
// cell.
func scale(count, peak int64, size int) int {
	if count <= 0 || peak <= 0 {
		return 0
	}
	n := int(math.Round(float64(count) * float64(size) / float64(peak)))
	if n < 1 {
		n = 1
	}
	return n
}

func (r *renderer) columns() {
	peak := r.maxCount()
	heights := make([]int, len(r.t.Entries))
	for i, e := range r.t.Entries {
		heights[i] = scale(e.Count, peak, columnHeight)
	}
	axis := len(fmt.Sprint(peak))

	for level := columnHeight; level >= 1; level-- {
		label := ""
		if level == columnHeight {
			label = fmt.Sprint(peak)
		}
		r.printf("%*s │", axis, label)
		for _, h := range heights {
			if h >= level {
				r.printf(" %s", strings.Repeat(fill, 3))
			} else {
				r.printf("    ")
			}
		}
		r.printf("\n")
	}
	r.printf("%*s └%s\n", axis, "0", strings.Repeat("─", 4*len(heights)))
	r.printf("%*s  ", axis, "")
	for i := range heights {
		r.printf(" %3d", i+1)
	}
	r.printf("\n\n")

	width := r.labelWidth()
	for i, e := range r.t.Entries {
		r.printf("%3d  %-*s %8d %6.1f%%\n", i+1, width, clip(e.Label), e.Count, r.t.Percent(i))
	}
}

func (r *renderer) bars() {
	peak := r.maxCount()
	width := r.labelWidth()
	for i := len(r.t.Entries) - 1; i >= 0; i-- {
		e := r.t.Entries[i]
		bar := strings.Repeat(fill, scale(e.Count, peak, r.c.Width))
		r.printf("%-*s │%s %d (%.1f%%)\n", width, clip(e.Label), bar, e.Count, r.t.Percent(i))
	}
}

func (r *renderer) pie() {
	width := r.labelWidth()
	var shown float64
	for i, e := range r.t.Entries {
		pct := r.t.Percent(i)
		shown += pct
		slice := strings.Repeat(fill, scale(int64(math.Round(pct*10)), 1000, r.c.Width))
		r.printf("%-*s %6.1f%%  %s (%d)\n", width, clip(e.Label), pct, slice, e.Count)
	}
	if rest := 100 - shown; rest >= 0.05 && shown <= 100 {
		r.printf("%-*s %6.1f%%\n", width, "(rest)", rest)
	}
}

func (r *renderer) labelWidth() int {
	w := len("(rest)")
	for _, e := range r.t.Entries {
		if n := utf8.RuneCountInString(clip(e.Label)); n > w {
			w = n
		}
	}
	return w
}

// clip shortens long labels, such as URLs in hashtags, to keep rows on one
// line.
func clip(s string) string {
	if utf8.RuneCountInString(s) <= maxLabel {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLabel-1]) + "…"
}

// tableJSON is the JSON shape of a rendered table.
type tableJSON struct {
	Title        string      `json:"title,omitempty"`
	Dimension    string      `json:"dimension"`
	Denominator  string      `json:"denominator"`
	Scanned      int64       `json:"scanned"`
	Contributing int64       `json:"contributing"`
	Entries      []entryJSON `json:"entries"`
}

type entryJSON struct {
	Label   string  `json:"label"`
	Count   int64   `json:"count"`
	Percent float64 `json:"percent"`
}

// RenderJSON writes t with per-entry percentages as indented JSON.
func RenderJSON(w io.Writer, t *tally.Table, c Chart) error {
	t = t.Top(c.TopN)
	out := tableJSON{
		Title:        c.Title,
		Dimension:    t.Dimension,
		Denominator:  t.Mode.String(),
		Scanned:      t.Scanned,
		Contributing: t.Contributing,
		Entries:      make([]entryJSON, len(t.Entries)),
	}
	for i, e := range t.Entries {
		out.Entries[i] = entryJSON{
			Label:   e.Label,
			Count:   e.Count,
			Percent: math.Round(t.Percent(i)*100) / 100,
		}
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
