package utils

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/schollz/progressbar/v3"
)

// Progress tracks a directory scan one analyzed file at a time. A Progress
// built without a writer only counts.
type Progress struct {
	total     int64
	done      atomic.Int64
	findings  atomic.Int64
	skipped   atomic.Int64
	startTime time.Time
	bar       *progressbar.ProgressBar
}

// NewProgress creates a tracker for total files. w may be nil.
func NewProgress(total int, w io.Writer) *Progress {
	p := &Progress{total: int64(total), startTime: time.Now()}
	if w == nil || total <= 0 {
		return p
	}

	p.bar = progressbar.NewOptions64(
		int64(total),
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowBytes(false),
		progressbar.OptionSetWidth(32),
		progressbar.OptionSetDescription("[cyan]Scanning[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[cyan]=[reset]",
			SaucerHead:    "[cyan]>[reset]",
			SaucerPadding: " ",
			BarStart:      "|",
			BarEnd:        "|",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(w)
		}),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("file"),
	)
	return p
}

// Observe records one analyzed file.
func (p *Progress) Observe(findings int, skipped bool) {
	p.done.Add(1)
	if skipped {
		p.skipped.Add(1)
	}
	total := p.findings.Add(int64(findings))
	if p.bar == nil {
		return
	}
	if findings > 0 {
		p.bar.Describe(fmt.Sprintf("[cyan]Scanning[reset] [red]%d found[reset]", total))
	}
	_ = p.bar.Add(1)
}

// Done returns the number of files observed.
func (p *Progress) Done() int64 { return p.done.Load() }

// Findings returns the number of findings observed.
func (p *Progress) Findings() int64 { return p.findings.Load() }

// Skipped returns the number of skipped files observed.
func (p *Progress) Skipped() int64 { return p.skipped.Load() }

// Total returns the number of files expected.
func (p *Progress) Total() int64 { return p.total }

// Rate returns files per second since the tracker was created.
func (p *Progress) Rate() float64 {
	elapsed := time.Since(p.startTime).Seconds()
	if elapsed == 0 {
		return 0
	}
	return float64(p.done.Load()) / elapsed
}

// Percentage returns the completion percentage.
func (p *Progress) Percentage() float64 {
	if p.total == 0 {
		return 100
	}
	return float64(p.done.Load()) / float64(p.total) * 100
}

// Finish completes the bar.
func (p *Progress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
}

// Spinner shows an indeterminate indicator while git diffs are read.
type Spinner struct {
	frames  []string
	message string
	writer  io.Writer
	done    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewSpinner creates a spinner writing to w.
func NewSpinner(message string, w io.Writer) *Spinner {
	return &Spinner{
		frames:  []string{"|", "/", "-", "\\"},
		message: message,
		writer:  w,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()

		for i := 0; ; i = (i + 1) % len(s.frames) {
			select {
			case <-s.done:
				fmt.Fprint(s.writer, "\r\033[K")
				return
			case <-ticker.C:
				fmt.Fprintf(s.writer, "\r%s %s", s.frames[i], s.message)
			}
		}
	}()
}

// Stop halts the animation and clears the line. It is safe to call twice.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.done)
		<-s.stopped
	})
}
