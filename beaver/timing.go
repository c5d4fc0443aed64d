// Package beaver
//
// The timing report is adapted from github.com/markkurossi/mpc
// circuit/timing.go, Copyright (c) 2020-2023 Markku Rossi.
package beaver

import (
	"fmt"
	"io"
	"time"

	"github.com/markkurossi/tabulate"
)

// ByteSize formats a byte count.
type ByteSize uint64

func (s ByteSize) String() string {
	switch {
	case s > 1000*1000*1000:
		return fmt.Sprintf("%dGB", s/(1000*1000*1000))
	case s > 1000*1000:
		return fmt.Sprintf("%dMB", s/(1000*1000))
	case s > 1000:
		return fmt.Sprintf("%dkB", s/1000)
	default:
		return fmt.Sprintf("%dB", s)
	}
}

// Timing records the phases of a run.
type Timing struct {
	Start   time.Time
	Samples []*Sample
}

// NewTiming creates a new Timing starting now.
func NewTiming() *Timing {
	return &Timing{
		Start: time.Now(),
	}
}

// Sample closes the phase started by the previous sample.
func (t *Timing) Sample(label string, cols []string) *Sample {
	start := t.Start
	if len(t.Samples) > 0 {
		start = t.Samples[len(t.Samples)-1].End
	}
	sample := &Sample{
		Label: label,
		Start: start,
		End:   time.Now(),
		Cols:  cols,
	}
	t.Samples = append(t.Samples, sample)
	return sample
}

// Total returns the time from Start to the end of the last sample.
func (t *Timing) Total() time.Duration {
	if len(t.Samples) == 0 {
		return 0
	}
	return t.Samples[len(t.Samples)-1].End.Sub(t.Start)
}

// Print writes the report to w.
func (t *Timing) Print(w io.Writer, sent, received uint64) {
	if len(t.Samples) == 0 {
		return
	}

	tab := tabulate.New(tabulate.UnicodeLight)
	tab.Header("Op").SetAlign(tabulate.ML)
	tab.Header("Time").SetAlign(tabulate.MR)
	tab.Header("%").SetAlign(tabulate.MR)
	tab.Header("Count").SetAlign(tabulate.MR)

	total := t.Total()
	for _, sample := range t.Samples {
		row := tab.Row()
		row.Column(sample.Label)

		duration := sample.End.Sub(sample.Start)
		row.Column(duration.String())
		row.Column(percent(duration, total))
		for _, col := range sample.Cols {
			row.Column(col)
		}

		for idx, sub := range sample.Samples {
			row := tab.Row()

			prefix := "├╴"
			if idx+1 >= len(sample.Samples) {
				prefix = "╰╴"
			}
			row.Column(prefix + sub.Label).SetFormat(tabulate.FmtItalic)
			row.Column(sub.Abs.String()).SetFormat(tabulate.FmtItalic)
		}
	}

	row := tab.Row()
	row.Column("Total").SetFormat(tabulate.FmtBold)
	row.Column(total.String()).SetFormat(tabulate.FmtBold)
	row.Column("").SetFormat(tabulate.FmtBold)
	row.Column(ByteSize(sent + received).String()).SetFormat(tabulate.FmtBold)

	row = tab.Row()
	row.Column("├╴Sent").SetFormat(tabulate.FmtItalic)
	row.Column("")
	row.Column(share(sent, sent+received)).SetFormat(tabulate.FmtItalic)
	row.Column(ByteSize(sent).String()).SetFormat(tabulate.FmtItalic)

	row = tab.Row()
	row.Column("╰╴Rcvd").SetFormat(tabulate.FmtItalic)
	row.Column("")
	row.Column(share(received, sent+received)).SetFormat(tabulate.FmtItalic)
	row.Column(ByteSize(received).String()).SetFormat(tabulate.FmtItalic)

	tab.Print(w)
}

func percent(d, total time.Duration) string {
	if total <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", float64(d)/float64(total)*100)
}

func share(n, total uint64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.2f%%", float64(n)/float64(total)*100)
}

// Sample is one timed phase.
type Sample struct {
	Label   string
	Start   time.Time
	End     time.Time
	Abs     time.Duration
	Cols    []string
	Samples []*Sample
}

// AbsSubSample adds a sub-sample with a fixed duration.
func (s *Sample) AbsSubSample(label string, duration time.Duration) {
	s.Samples = append(s.Samples, &Sample{
		Label: label,
		Abs:   duration,
	})
}
