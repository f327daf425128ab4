package engine

import "math"

// Kind identifies which operation a progress snapshot belongs to.
type Kind int

const (
	KindCopy Kind = iota
	KindMove
	KindDelete
	KindSize
)

func (k Kind) String() string {
	switch k {
	case KindCopy:
		return "copy"
	case KindMove:
		return "move"
	case KindDelete:
		return "delete"
	case KindSize:
		return "size"
	default:
		return "unknown"
	}
}

// Progress is one snapshot of a running operation. Every snapshot is
// complete on its own; consumers never need to correlate or diff them.
type Progress struct {
	// Kind names the operation the snapshot belongs to.
	Kind Kind

	// Path is the file the operation was working on when the snapshot was
	// taken, relative to the operation's root for batch operations.
	Path string

	// BytesDone and BytesTotal track payload bytes. BytesTotal is zero when
	// no byte total applies, for example during a delete.
	BytesDone  int64
	BytesTotal int64

	// FilesCompleted and TotalFiles track whole files in batch operations.
	FilesCompleted int
	TotalFiles     int
}

// Percent reports completion in the range 0 to 100, preferring byte totals
// and falling back to file counts.
func (p Progress) Percent() float64 {
	switch {
	case p.BytesTotal > 0:
		return math.Min(100, float64(p.BytesDone)/float64(p.BytesTotal)*100)
	case p.TotalFiles > 0:
		return math.Min(100, float64(p.FilesCompleted)/float64(p.TotalFiles)*100)
	default:
		return 0
	}
}

// ProgressFunc receives snapshots between chunks and files, on the
// operation's own goroutine. It is never invoked after a cancellation or a
// failure, so a consumer never sees a stale 100% for aborted work.
type ProgressFunc func(Progress)

// FileResult is one per-file outcome in a streamed directory operation.
// Path is relative to the operation's source root.
type FileResult struct {
	Path string
	Err  error
}

// Feed bridges progress reporting to a channel, so a UI loop receives
// snapshots as plain messages instead of sharing state with the operation.
// Sends never block: when the consumer lags, intermediate snapshots are
// dropped and only later ones arrive.
type Feed struct {
	ch chan Progress
}

// NewFeed returns a feed whose channel buffers up to buffer snapshots.
func NewFeed(buffer int) *Feed {
	if buffer < 1 {
		buffer = 1
	}
	return &Feed{ch: make(chan Progress, buffer)}
}

// Func returns the reporting side of the feed, for Options.OnProgress.
func (f *Feed) Func() ProgressFunc {
	return func(p Progress) {
		select {
		case f.ch <- p:
		default:
		}
	}
}

// Updates returns the receive side of the feed.
func (f *Feed) Updates() <-chan Progress {
	return f.ch
}

// Close closes the update channel. Call it only once the operation has
// returned; the feed never closes the channel on its own.
func (f *Feed) Close() {
	close(f.ch)
}
