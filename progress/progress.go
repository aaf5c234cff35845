package progress

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// Bar renders row-count progress to stderr.
type Bar struct {
	bar   *progressbar.ProgressBar
	total int64
}

func New(total int64, description string) *Bar {
	options := []progressbar.Option{
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetRenderBlankState(true),
	}

	if term.IsTerminal(int(os.Stderr.Fd())) {
		options = append(options, progressbar.OptionUseANSICodes(true))
	}

	return &Bar{
		bar:   progressbar.NewOptions64(total, options...),
		total: total,
	}
}

// Add advances the bar by n rows, clamping at the total.
func (b *Bar) Add(n int) {
	if b.bar == nil {
		return
	}
	b.bar.Add(n)
}

func (b *Bar) Finish() {
	if b.bar != nil {
		b.bar.Finish()
		b.bar = nil
	}
}
