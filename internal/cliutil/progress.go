package cliutil

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
)

// spinnerFrames mirrors the frame set a delegation-style (non-download)
// install uses while its duration is unknown up front.
var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// Reporter renders EnsureStage's per-runtime install lifecycle: a spinner
// bar per in-flight install when attached to a TTY, or a plain start/done
// line per install otherwise. It implements the same start/complete/fail
// shape as the teacher's delegation-install progress path, since
// EnsureStage's installs (script or hook driven) don't expose byte-level
// download progress the way a single HTTP GET would.
type Reporter struct {
	mu       sync.Mutex
	w        io.Writer
	isTTY    bool
	progress *mpb.Progress
	bars     map[string]*mpb.Bar
	style    *Style
}

// NewReporter creates a Reporter writing to w. TTY detection uses w's
// underlying file descriptor when w is an *os.File, falling back to
// plain-line mode for any other writer (e.g. a test buffer).
func NewReporter(w io.Writer) *Reporter {
	isTTY := false
	if f, ok := w.(*os.File); ok {
		isTTY = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}

	r := &Reporter{
		w:     w,
		isTTY: isTTY,
		bars:  make(map[string]*mpb.Bar),
		style: NewStyle(),
	}
	if isTTY {
		r.progress = mpb.New(mpb.WithOutput(w), mpb.WithWidth(40))
	}
	return r
}

// Start reports that name@version has begun installing.
func (r *Reporter) Start(key, name, version string) {
	if r.isTTY {
		label := fmt.Sprintf(" => %s %s ", r.style.Path.Sprint(name), version)
		bar, _ := r.progress.Add(0,
			mpb.SpinnerStyle(spinnerFrames...).Build(),
			mpb.BarFillerClearOnComplete(),
			mpb.PrependDecorators(decor.Name(label, decor.WC{W: 40, C: decor.DindentRight})),
			mpb.AppendDecorators(
				decor.Elapsed(decor.ET_STYLE_GO, decor.WC{W: 8}),
				decor.OnComplete(decor.Name(""), " done"),
			),
		)
		r.mu.Lock()
		r.bars[key] = bar
		r.mu.Unlock()
		return
	}

	fmt.Fprintf(r.w, "  installing %s %s\n", name, version)
}

// Complete reports that key finished installing successfully.
func (r *Reporter) Complete(key, name, version string) {
	if r.isTTY {
		r.mu.Lock()
		if bar, ok := r.bars[key]; ok {
			bar.SetTotal(bar.Current(), true)
			delete(r.bars, key)
		}
		r.mu.Unlock()
		return
	}

	fmt.Fprintf(r.w, "  %s %s %s\n", r.style.SuccessMark, name, version)
}

// Fail reports that key's install failed with err.
func (r *Reporter) Fail(key, name, version string, err error) {
	if r.isTTY {
		r.mu.Lock()
		if bar, ok := r.bars[key]; ok {
			bar.Abort(true)
			delete(r.bars, key)
		}
		r.mu.Unlock()
	}

	fmt.Fprintf(r.w, "  %s %s %s: %v\n", r.style.FailMark, name, version, err)
}

// Skip reports that key was already installed and needed no work.
func (r *Reporter) Skip(name, version string) {
	fmt.Fprintf(r.w, "  %s %s %s (already installed)\n", r.style.SkipMark, name, version)
}

// Wait blocks until every in-flight bar finishes rendering.
func (r *Reporter) Wait() {
	if r.progress != nil {
		r.progress.Wait()
	}
}
