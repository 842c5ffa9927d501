package ui

import (
	"fmt"
	"sync"
	"time"
)

// progressFrames cycle while a Progress is animating.
var progressFrames = []string{"◐", "◓", "◑", "◒"}

const progressInterval = 120 * time.Millisecond

// Progress is an animated single-line indicator whose message follows the
// engine's progress callbacks. On a TTY the current message spins in place;
// elsewhere each new message prints once as a dim line.
type Progress struct {
	u *UI

	mu  sync.Mutex
	msg string

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// StartProgress begins an indicator with no message. Feed it with Update
// (it is safe to hand Update to another goroutine) and finish with Done.
func (u *UI) StartProgress() *Progress {
	p := &Progress{
		u:    u,
		done: make(chan struct{}),
	}
	if !u.isTTY {
		return p
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()

		frame := 0
		for {
			select {
			case <-p.done:
				p.clearLine()
				return
			case <-ticker.C:
				p.mu.Lock()
				msg := p.msg
				p.mu.Unlock()
				if msg == "" {
					continue
				}
				fmt.Fprintf(p.u.out, "\r\x1b[2K  %s %s", progressFrames[frame%len(progressFrames)], msg)
				frame++
			}
		}
	}()
	return p
}

// Update swaps the displayed message. In non-TTY mode the message prints
// immediately instead.
func (p *Progress) Update(msg string) {
	if !p.u.isTTY {
		p.u.Dim("  " + msg)
		return
	}
	p.mu.Lock()
	p.msg = msg
	p.mu.Unlock()
}

// Done stops the animation and clears the line. Safe to call more than
// once, so callers can defer it and also call it before printing results.
func (p *Progress) Done() {
	p.once.Do(func() { close(p.done) })
	p.wg.Wait()
}

// clearLine wipes the in-place spinner line.
func (p *Progress) clearLine() {
	fmt.Fprint(p.u.out, "\r\x1b[2K")
}
