// Package progress draws transfer progress bars on an interactive terminal.
package progress

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"github.com/alanbriolat/office-hours-archiver/netpath"
)

// Bars draws one byte-counting bar per transfer. A transfer is considered new when its total changes or its byte
// count goes backwards.
type Bars struct {
	w           io.Writer
	description string

	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	lastDone  int64
	lastTotal int64
}

func NewBars(w io.Writer, description string) *Bars {
	return &Bars{w: w, description: description}
}

// Terminal returns a ProgressFunc drawing on stderr, or nil when stderr is not a terminal.
func Terminal(description string) netpath.ProgressFunc {
	fd := os.Stderr.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return nil
	}
	return NewBars(os.Stderr, description).Func()
}

func (b *Bars) Func() netpath.ProgressFunc {
	return b.update
}

func (b *Bars) update(done, total int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.bar == nil || done < b.lastDone || total != b.lastTotal {
		b.bar = b.newBar(total)
	}
	b.lastDone, b.lastTotal = done, total
	_ = b.bar.Set64(done)
}

func (b *Bars) newBar(total int64) *progressbar.ProgressBar {
	if total <= 0 {
		total = -1
	}
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(b.description),
		progressbar.OptionSetWriter(b.w),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(10),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			_, _ = io.WriteString(b.w, "\n")
		}),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionFullWidth(),
		progressbar.OptionSetRenderBlankState(true),
	)
}
