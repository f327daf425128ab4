package cli

import (
	"fmt"
	"os"
	"sync"

	"github.com/muesli/reflow/truncate"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"

	"dualfm/internal/engine"
)

// descWidth caps the file-name portion of a progress description so long
// paths do not push the bar off screen.
const descWidth = 32

// shouldShowProgress reports whether progress bars should be displayed.
func shouldShowProgress() bool {
	switch progressMode {
	case "plain":
		return false
	case "tty":
		return true
	default:
		// Auto mode: show progress only when connected to a terminal.
		return term.IsTerminal(int(os.Stderr.Fd()))
	}
}

// newOperationProgress creates a progress callback for an operation and a
// finish function to call once the operation has returned. The callback is
// nil when progress should not be shown.
//
// The bar is built lazily from the first snapshot: byte-driven when a byte
// total is known, count-driven when a file total is known, a spinner
// otherwise.
func newOperationProgress(verb string) (engine.ProgressFunc, func()) {
	if !shouldShowProgress() {
		return nil, func() {}
	}

	var bar *progressbar.ProgressBar
	var once sync.Once

	callback := func(p engine.Progress) {
		once.Do(func() {
			switch {
			case p.BytesTotal > 0:
				bar = newByteBar(p.BytesTotal, verb)
			case p.TotalFiles > 0:
				bar = newCountBar(p.TotalFiles, verb)
			default:
				// Unknown totals, like a size scan, render as a spinner
				// with a running count.
				bar = newCountBar(-1, verb)
			}
		})
		if name := p.Path; name != "" {
			bar.Describe(verb + " " + truncate.StringWithTail(name, descWidth, "…"))
		}
		if p.BytesTotal > 0 {
			//nolint:errcheck // progress bar errors are not critical
			bar.Set64(p.BytesDone)
		} else {
			//nolint:errcheck // progress bar errors are not critical
			bar.Set(p.FilesCompleted)
		}
	}

	finish := func() {
		if bar == nil {
			return
		}
		//nolint:errcheck // progress bar errors are not critical
		bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	return callback, finish
}

func newByteBar(total int64, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions64(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionUseANSICodes(true),
	)
}

func newCountBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(
		total,
		progressbar.OptionSetDescription(description),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionUseANSICodes(true),
	)
}
