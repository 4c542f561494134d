package visual

import (
	"math"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Screen shows successive frames in one place on the terminal.
type Screen interface {
	Show(frame string) error
	Close() error
}

// TermSurface rasterizes a pixel-sized canvas onto a grid of terminal
// cells and hands every presented frame to its screen.
type TermSurface struct {
	screen        Screen
	width, height float64
	cols, rows    int

	mu     sync.Mutex
	cells  []Color
	styles map[Color]lipgloss.Style
}

// NewTermSurface maps a width×height pixel canvas onto cols×rows cells.
func NewTermSurface(screen Screen, width, height float64, cols, rows int) *TermSurface {
	return &TermSurface{
		screen: screen,
		width:  width,
		height: height,
		cols:   cols,
		rows:   rows,
		cells:  make([]Color, cols*rows),
		styles: make(map[Color]lipgloss.Style),
	}
}

func (t *TermSurface) Width() float64  { return t.width }
func (t *TermSurface) Height() float64 { return t.height }

func (t *TermSurface) Clear(c Color) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i := range t.cells {
		t.cells[i] = c
	}
}

// FillRect paints every cell the rectangle touches. Zero or negative sizes
// still mark the cell under the origin so thin bars stay visible.
func (t *TermSurface) FillRect(x, y, w, h float64, c Color) {
	if h <= 0 {
		return
	}
	sx := float64(t.cols) / t.width
	sy := float64(t.rows) / t.height

	c0, c1 := span(x*sx, math.Max(w, 0)*sx, t.cols)
	r0, r1 := span(y*sy, h*sy, t.rows)

	t.mu.Lock()
	defer t.mu.Unlock()
	for r := r0; r <= r1; r++ {
		for col := c0; col <= c1; col++ {
			t.cells[r*t.cols+col] = c
		}
	}
}

// span converts a start and length in cell units to an inclusive cell range.
func span(start, length float64, n int) (int, int) {
	first := int(math.Floor(start))
	last := int(math.Ceil(start+length)) - 1
	if last < first {
		last = first
	}
	return min(max(first, 0), n-1), min(max(last, 0), n-1)
}

// Cell returns the colour of a cell; used by tests and the status line.
func (t *TermSurface) Cell(col, row int) Color {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cells[row*t.cols+col]
}

func (t *TermSurface) Render() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var b strings.Builder
	for r := 0; r < t.rows; r++ {
		row := t.cells[r*t.cols : (r+1)*t.cols]
		for i := 0; i < len(row); {
			j := i
			for j < len(row) && row[j] == row[i] {
				j++
			}
			b.WriteString(t.style(row[i]).Render(strings.Repeat(" ", j-i)))
			i = j
		}
		if r < t.rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func (t *TermSurface) Present() error {
	return t.screen.Show(t.Render())
}

// Close gives the screen area back.
func (t *TermSurface) Close() error {
	return t.screen.Close()
}

func (t *TermSurface) style(c Color) lipgloss.Style {
	s, ok := t.styles[c]
	if !ok {
		s = lipgloss.NewStyle().Background(lipgloss.Color(string(c)))
		t.styles[c] = s
	}
	return s
}
