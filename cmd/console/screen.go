package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/lostmyescape/opsconsole/internal/console"
	"github.com/lostmyescape/opsconsole/internal/console/charts"
	"github.com/lostmyescape/opsconsole/internal/console/viewmodel"
)

// terminalScreen prints view models as plain text tables.
type terminalScreen struct {
	mu  sync.Mutex
	out io.Writer
}

func newTerminalScreen(out io.Writer) *terminalScreen {
	return &terminalScreen{out: out}
}

func (s *terminalScreen) ShowDashboard(d viewmodel.Dashboard) {
	s.mu.Lock()
	defer s.mu.Unlock()

	color.New(color.Bold).Fprintf(s.out, "\n== Dashboard %s ==\n", d.Range)

	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	for _, c := range d.Cards {
		fmt.Fprintf(tw, "%s\t%s\n", c.Label, c.Value)
	}
	_ = tw.Flush()

	s.table(d.Partners)
	s.table(d.Sources)
}

func (s *terminalScreen) ShowTable(_ console.View, t viewmodel.Table) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.table(t)
}

func (s *terminalScreen) table(t viewmodel.Table) {
	color.New(color.Bold).Fprintf(s.out, "\n-- %s --\n", t.Title)

	if t.Empty != "" {
		fmt.Fprintln(s.out, t.Empty)
		return
	}

	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	_ = tw.Flush()

	if t.Footer != "" {
		fmt.Fprintln(s.out, t.Footer)
	}
}

func (s *terminalScreen) NewChart(key string, series viewmodel.Series) charts.Chart {
	s.mu.Lock()
	defer s.mu.Unlock()

	fmt.Fprintf(s.out, "\n[%s] %s\n", key, series.Title)

	tw := tabwriter.NewWriter(s.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\t%s\n", strings.Join(series.Labels, "\t"))
	for _, ds := range series.Datasets {
		values := make([]string, 0, len(ds.Values))
		for _, v := range ds.Values {
			values = append(values, fmt.Sprintf("%.0f", v))
		}
		fmt.Fprintf(tw, "%s\t%s\n", ds.Label, strings.Join(values, "\t"))
	}
	_ = tw.Flush()

	return textChart{}
}

func (s *terminalScreen) SetLoading(visible bool) {
	if !visible {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	color.New(color.Faint).Fprintln(s.out, "loading...")
}

func (s *terminalScreen) ShowBanner(msg string) {
	if msg == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	color.New(color.FgRed, color.Bold).Fprintf(s.out, "! %s (type 'dismiss' to hide)\n", msg)
}

func (s *terminalScreen) ShowNotice(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	color.New(color.FgYellow).Fprintln(s.out, msg)
}

// textChart has nothing to release once printed.
type textChart struct{}

func (textChart) Destroy() {}
