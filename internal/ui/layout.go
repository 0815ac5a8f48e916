package ui

import (
	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

const (
	cellWidth   = 18
	boxPaddingX = 2
	boxPaddingY = 1
)

type UILayout struct {
	Rows      int
	Cols      int
	BoxWidth  int
	StatusY   int
	HelpY     int
	CellWidth int
	PaddingX  int
	PaddingY  int
}

// ComputeLayout fits up to maxRows grid rows on the screen.
func ComputeLayout(screenW, screenH, maxRows, cols int) UILayout {
	const fixedRows = 3 + 2 + 3 + 2 // headers, borders, spacing
	rows := max(min(screenH-fixedRows, maxRows), 1)

	boxW := cols*cellWidth + boxPaddingX*2
	statusY := 4 + rows + 1
	helpY := statusY + 3

	return UILayout{
		Rows:      rows,
		Cols:      cols,
		BoxWidth:  boxW,
		StatusY:   statusY,
		HelpY:     helpY,
		CellWidth: cellWidth,
		PaddingX:  boxPaddingX,
		PaddingY:  boxPaddingY,
	}
}

// DrawBox frames w x h cells at x, y. A title that does not fit is cut
// short with an ellipsis.
func DrawBox(s tcell.Screen, x, y, w, h int, style tcell.Style, title string) {
	if w < 2 || h < 2 {
		return
	}

	right, bottom := x+w-1, y+h-1
	for i := x + 1; i < right; i++ {
		s.SetContent(i, y, tcell.RuneHLine, nil, style)
		s.SetContent(i, bottom, tcell.RuneHLine, nil, style)
	}
	for j := y + 1; j < bottom; j++ {
		s.SetContent(x, j, tcell.RuneVLine, nil, style)
		s.SetContent(right, j, tcell.RuneVLine, nil, style)
	}
	s.SetContent(x, y, tcell.RuneULCorner, nil, style)
	s.SetContent(right, y, tcell.RuneURCorner, nil, style)
	s.SetContent(x, bottom, tcell.RuneLLCorner, nil, style)
	s.SetContent(right, bottom, tcell.RuneLRCorner, nil, style)

	if room := w - 6; title != "" && room > 0 {
		DrawText(s, x+2, y, style, " "+runewidth.Truncate(title, room, "…")+" ")
	}
}

// DrawText writes text from column x, advancing by display width, and stops
// at the right edge of the screen. It returns the columns used.
func DrawText(s tcell.Screen, x, y int, style tcell.Style, text string) int {
	scrW, _ := s.Size()

	col := x
	for _, r := range text {
		rw := runewidth.RuneWidth(r)
		if rw == 0 {
			continue
		}
		if col+rw > scrW {
			break
		}
		if col >= 0 {
			s.SetContent(col, y, r, nil, style)
		}
		col += rw
	}

	return col - x
}

func DrawTextCentered(s tcell.Screen, centerX, y int, style tcell.Style, text string) int {
	return DrawText(s, centerX-runewidth.StringWidth(text)/2, y, style, text)
}

func FillRect(s tcell.Screen, x, y, w, h int, style tcell.Style) {
	for j := range h {
		for i := range w {
			s.SetContent(x+i, y+j, ' ', nil, style)
		}
	}
}
