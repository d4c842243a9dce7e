package mailbox

import (
	"fmt"
	"io"
	"time"
)

// indexProgress draws the self-overwriting status line of one IndexEmails
// run. It advances with every message read, skipped ones included, and its
// last line shows where the run actually stopped.
type indexProgress struct {
	w        io.Writer
	total    int
	every    int
	lastSeen int
	start    time.Time
}

func newIndexProgress(w io.Writer, total, every int) *indexProgress {
	return &indexProgress{w: w, total: total, every: max(every, 1), start: time.Now()}
}

// update redraws the line once every messages have been read since the last draw.
func (p *indexProgress) update(r IndexReport) {
	if r.Seen-p.lastSeen < p.every {
		return
	}
	p.lastSeen = r.Seen
	p.draw(r)
}

// done draws the final counts and ends the line.
func (p *indexProgress) done(r IndexReport) {
	p.draw(r)
	fmt.Fprintln(p.w)
}

func (p *indexProgress) draw(r IndexReport) {
	rate := 0.0
	if elapsed := time.Since(p.start).Seconds(); elapsed > 0 {
		rate = float64(r.Seen) / elapsed
	}
	pct := 0.0
	if p.total > 0 {
		pct = float64(r.Seen) / float64(p.total) * 100
	}
	fmt.Fprintf(p.w, "\rProgress: %d/%d (%.1f%%), %d indexed - %.1f messages/s",
		r.Seen, p.total, pct, r.Indexed, rate)
}
