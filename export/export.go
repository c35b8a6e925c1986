// CLAUDE:SUMMARY Projects a timeline into CSV rows, chart points, a rendered table, and output files.
// Package export renders extraction results for people and files: CSV
// rows in the page's day-first layout, a terminal table, chart points, and
// the on-disk progress/history pair.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/hazyhaar/xptrail/tracker"
	"github.com/hazyhaar/xptrail/tracker/timeline"
)

const (
	DateLayout = "02-01-2006"
	TimeLayout = "15:04:05"
)

// Row is one event formatted for CSV.
type Row struct {
	Date string
	Time string
	XP   int
}

// Rows projects the timeline onto display-local date/time strings.
func Rows(tl *timeline.Timeline) []Row {
	if tl == nil {
		return nil
	}
	events := tl.Events()
	rows := make([]Row, len(events))
	for i, e := range events {
		rows[i] = Row{Date: e.Local.Format(DateLayout), Time: e.Local.Format(TimeLayout), XP: e.XP}
	}
	return rows
}

// WriteCSV writes the header "date,time,xp" followed by one line per event.
func WriteCSV(w io.Writer, tl *timeline.Timeline) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"date", "time", "xp"})
	for _, r := range Rows(tl) {
		t.AppendRow(table.Row{r.Date, r.Time, r.XP})
	}
	_, err := io.WriteString(w, t.RenderCSV()+"\n")
	return err
}

// ChartPoint is one point of the XP history chart.
type ChartPoint struct {
	Local      time.Time `json:"local"`
	XP         int       `json:"xp"`
	Cumulative int       `json:"cumulative"`
}

// ChartPoints returns the events as chart points with a running total.
func ChartPoints(tl *timeline.Timeline) []ChartPoint {
	if tl == nil {
		return nil
	}
	events := tl.Events()
	pts := make([]ChartPoint, len(events))
	total := 0
	for i, e := range events {
		total += e.XP
		pts[i] = ChartPoint{Local: e.Local, XP: e.XP, Cumulative: total}
	}
	return pts
}

// RenderTable prints the result as a rounded table with a total footer.
func RenderTable(w io.Writer, res *tracker.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("%s (%s)", res.Header.DisplayName, formatOffset(res.Header.UTCOffsetMinutes))
	t.AppendHeader(table.Row{"#", "Local", "UTC", "XP"})

	var events []timeline.XPEvent
	if res.Timeline != nil {
		events = res.Timeline.Events()
	}
	total := 0
	for i, e := range events {
		total += e.XP
		t.AppendRow(table.Row{i + 1, e.Local.Format(time.DateTime), e.UTC.Format(time.DateTime), e.XP})
	}
	t.AppendFooter(table.Row{"", "", "Total", total})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight, AlignFooter: text.AlignRight},
	})
	t.Render()
}

func formatOffset(minutes int) string {
	sign := "+"
	if minutes < 0 {
		sign = "-"
		minutes = -minutes
	}
	return fmt.Sprintf("UTC%s%02d:%02d", sign, minutes/60, minutes%60)
}

var unsafeName = regexp.MustCompile(`[^\p{L}\p{N}._-]+`)

// FileBase turns a display name into a safe file name stem.
func FileBase(name string) string {
	base := strings.Trim(unsafeName.ReplaceAllString(name, "_"), "._")
	if base == "" {
		return "profile"
	}
	return base
}

// WriteFiles writes <name>_progress.csv and, when a snapshot exists,
// <name>_history.png into dir. It returns the paths written.
func WriteFiles(dir string, res *tracker.Result) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("export: mkdir: %w", err)
	}
	name := res.Header.DisplayName
	if name == "" {
		name = res.Username
	}
	base := FileBase(name)

	var written []string
	if res.Timeline != nil {
		path := filepath.Join(dir, base+"_progress.csv")
		f, err := os.Create(path)
		if err != nil {
			return written, fmt.Errorf("export: %w", err)
		}
		err = WriteCSV(f, res.Timeline)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return written, fmt.Errorf("export: write %s: %w", path, err)
		}
		written = append(written, path)
	}

	if res.Snapshot != nil {
		path := filepath.Join(dir, base+"_history.png")
		if err := os.WriteFile(path, res.Snapshot.Bytes, 0o644); err != nil {
			return written, fmt.Errorf("export: %w", err)
		}
		written = append(written, path)
	}
	return written, nil
}
