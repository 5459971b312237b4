package main

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/jamesainslie/filesort/pkg/filesort/types"
)

// progressInterval limits how often the status line is redrawn.
const progressInterval = 100 * time.Millisecond

// progressPrinter draws a single status line on a terminal while a run is
// in progress. It is a no-op when the writer is not a terminal.
type progressPrinter struct {
	w       io.Writer
	enabled bool

	mu    sync.Mutex
	last  time.Time
	drawn bool
}

func newProgressPrinter(w io.Writer, disabled bool) *progressPrinter {
	p := &progressPrinter{w: w}
	if f, ok := w.(*os.File); ok && !disabled {
		p.enabled = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return p
}

// Update is a sorter.Options.OnProgress callback.
func (p *progressPrinter) Update(sp types.SortProgress) {
	if !p.enabled {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	if !sp.Done && now.Sub(p.last) < progressInterval {
		return
	}
	p.last = now
	p.drawn = true

	fmt.Fprintf(p.w, "\r\033[K%d dirs  %d copied  %s  %d failed  %d active",
		sp.DirsListed, sp.FilesCopied, types.FormatSize(sp.BytesCopied), sp.Failed, sp.Active)
}

// Finish clears the status line.
func (p *progressPrinter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.drawn {
		fmt.Fprint(p.w, "\r\033[K")
		p.drawn = false
	}
}
