// Package progress draws ingestion progress on stderr.
package progress

import (
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Bar wraps schollz/progressbar. A nil or disabled Bar is a no-op.
type Bar struct {
	bar *progressbar.ProgressBar
}

// New returns a bar over total files. A total <= 0 draws a spinner; enabled
// false returns a Bar that draws nothing.
func New(total int, description string, enabled bool) *Bar {
	return newBar(os.Stderr, total, description, enabled)
}

func newBar(w io.Writer, total int, description string, enabled bool) *Bar {
	if !enabled {
		return &Bar{}
	}

	opts := []progressbar.Option{
		progressbar.OptionSetWriter(w),
		progressbar.OptionThrottle(250 * time.Millisecond),
		progressbar.OptionClearOnFinish(),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
	}

	if total > 0 {
		opts = append(opts,
			progressbar.OptionSetWidth(30),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("files"),
			progressbar.OptionSetPredictTime(true),
		)
		return &Bar{bar: progressbar.NewOptions(total, opts...)}
	}

	opts = append(opts, progressbar.OptionSpinnerType(14))
	return &Bar{bar: progressbar.NewOptions(-1, opts...)}
}

func (b *Bar) Increment() {
	if b == nil || b.bar == nil {
		return
	}
	_ = b.bar.Add(1)
}

func (b *Bar) Describe(s string) {
	if b == nil || b.bar == nil {
		return
	}
	b.bar.Describe(s)
}

func (b *Bar) Finish() {
	if b == nil || b.bar == nil {
		return
	}
	_ = b.bar.Finish()
}
