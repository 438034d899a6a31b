package main

import (
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
)

var (
	headerColor = color.New(color.Bold)
	nameColor   = color.New(color.FgCyan)
	dimColor    = color.New(color.Faint)
	errColor    = color.New(color.FgRed, color.Bold)
	okColor     = color.New(color.FgGreen)
)

// table collects rows and prints them with aligned columns. Widths are
// measured in terminal cells so wide runes in names stay aligned.
type table struct {
	header []string
	rows   [][]string
	paint  []*color.Color
}

func newTable(header ...string) *table {
	return &table{header: header, paint: make([]*color.Color, len(header))}
}

// color sets the color of column i.
func (t *table) color(i int, c *color.Color) *table {
	t.paint[i] = c
	return t
}

func (t *table) add(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *table) widths() []int {
	w := make([]int, len(t.header))
	measure := func(row []string) {
		for i, cell := range row {
			if i < len(w) {
				w[i] = max(w[i], runewidth.StringWidth(cell))
			}
		}
	}
	measure(t.header)
	for _, row := range t.rows {
		measure(row)
	}
	return w
}

func (t *table) write(out io.Writer) error {
	w := t.widths()
	line := func(row []string, header bool) error {
		var b strings.Builder
		for i, cell := range row {
			last := i == len(row)-1
			text := cell
			if !last {
				text = runewidth.FillRight(cell, w[i])
			}
			switch {
			case header:
				text = headerColor.Sprint(text)
			case t.paint[i] != nil:
				text = t.paint[i].Sprint(text)
			}
			b.WriteString(text)
			if !last {
				b.WriteString("  ")
			}
		}
		b.WriteByte('\n')
		_, err := io.WriteString(out, b.String())
		return err
	}
	if err := line(t.header, true); err != nil {
		return err
	}
	for _, row := range t.rows {
		if err := line(row, false); err != nil {
			return err
		}
	}
	return nil
}
