package view

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Console shares one terminal between scrolling output and live regions.
// Live regions stay pinned below everything written through Write: before
// each write they are erased, and afterwards redrawn.
type Console struct {
	mu     sync.Mutex
	w      io.Writer
	live   []*Region
	height int
}

func NewConsole(w io.Writer) *Console {
	return &Console{w: w}
}

// Write prints p above the live regions.
func (c *Console) Write(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.erase(); err != nil {
		return 0, err
	}
	n, err := c.w.Write(p)
	if err != nil {
		return n, err
	}
	if len(p) > 0 && p[len(p)-1] != '\n' {
		if _, err := io.WriteString(c.w, "\n"); err != nil {
			return n, err
		}
	}
	return n, c.redraw()
}

// Region adds an empty live region below the existing ones.
func (c *Console) Region() *Region {
	r := &Region{c: c}
	c.mu.Lock()
	c.live = append(c.live, r)
	c.mu.Unlock()
	return r
}

// erase clears the live area and leaves the cursor where it started.
func (c *Console) erase() error {
	if c.height == 0 {
		return nil
	}
	_, err := fmt.Fprintf(c.w, "\x1b[%dF\x1b[J", c.height)
	c.height = 0
	return err
}

func (c *Console) redraw() error {
	var b strings.Builder
	lines := 0
	for _, r := range c.live {
		if r.frame == "" {
			continue
		}
		b.WriteString(r.frame)
		b.WriteByte('\n')
		lines += strings.Count(r.frame, "\n") + 1
	}
	if lines == 0 {
		return nil
	}
	if _, err := io.WriteString(c.w, b.String()); err != nil {
		return err
	}
	c.height = lines
	return nil
}

// Region is one live area of a Console, redrawn in place on every Show.
type Region struct {
	c     *Console
	frame string
}

// Show replaces the region's content with frame.
func (r *Region) Show(frame string) error {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()

	r.frame = frame
	if err := c.erase(); err != nil {
		return err
	}
	return c.redraw()
}

// Close removes the region and its content from the screen.
func (r *Region) Close() error {
	c := r.c
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, x := range c.live {
		if x == r {
			c.live = append(c.live[:i], c.live[i+1:]...)
			break
		}
	}
	if err := c.erase(); err != nil {
		return err
	}
	return c.redraw()
}
