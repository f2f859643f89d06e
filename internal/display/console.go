package display

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"

	"github.com/hamed0406/pingwatch/internal/domain"
)

const TimeLayout = "2006-01-02 15:04:05"

const (
	ansiReset = "\x1b[0m"
	ansiGood  = "\x1b[32m"
	ansiBad   = "\x1b[31m"
	ansiHome  = "\x1b[H\x1b[2J"
)

// Console redraws a status line and the recent outage table on a terminal.
type Console struct {
	Out io.Writer
	// Redraw clears the screen before every frame; Color enables ANSI colors.
	Redraw bool
	Color  bool

	mu sync.Mutex
}

func NewConsole(out io.Writer, tty bool) *Console {
	return &Console{Out: out, Redraw: tty, Color: tty}
}

// NewConsoleFor redraws and colours only when f is a terminal.
func NewConsoleFor(f *os.File) *Console {
	return NewConsole(f, IsTerminal(f))
}

func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func (c *Console) Render(stats domain.Stats, outages []domain.Outage) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := bufio.NewWriter(c.Out)
	if c.Redraw {
		w.WriteString(ansiHome)
	}
	c.paint(w, stats.LastEvent.Dropped())
	w.WriteString(StatusLine(stats))
	c.reset(w)
	w.WriteString("\n")

	if len(outages) > 0 {
		w.WriteString("\n   Recent Outages:\n")
		for _, o := range outages {
			w.WriteString("     " + OutageLine(o) + "\n")
		}
	}
	return w.Flush()
}

// StatusLine is the one-line summary for the latest tick.
func StatusLine(s domain.Stats) string {
	pct := s.Ratio * 100
	if s.LastEvent.Dropped() {
		return fmt.Sprintf("DROPPED PACKET DETECTED\tDropped Packet Count: %d\tConsecutive Drops: %d\tDropped Percentage : %0.4f%%\tTotal Outages: %d",
			s.DroppedProbes, s.ConsecutiveDrops, pct, s.OutageCount)
	}
	return fmt.Sprintf("Ping Time : %0.5f\tDropped Packet Count : %d\tDropped Percentage : %0.4f%%\tTotal Outages: %d",
		s.LastLatency.Seconds(), s.DroppedProbes, pct, s.OutageCount)
}

// OutageLine renders one interval; open intervals show "[in progress]" and no duration.
func OutageLine(o domain.Outage) string {
	start := o.StartedAt.Local().Format(TimeLayout)
	if o.Open() {
		return fmt.Sprintf("%s\t[in progress]\t\t\t", start)
	}
	return fmt.Sprintf("%s\t%s\t\t\t%d seconds", start, o.EndedAt.Local().Format(TimeLayout), *o.DurationSecs)
}

func (c *Console) paint(w *bufio.Writer, bad bool) {
	if !c.Color {
		return
	}
	if bad {
		w.WriteString(ansiBad)
	} else {
		w.WriteString(ansiGood)
	}
}

func (c *Console) reset(w *bufio.Writer) {
	if c.Color {
		w.WriteString(ansiReset)
	}
}
