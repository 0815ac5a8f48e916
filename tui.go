package readmemlib

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/cunev/readmemlib/internal/ui"
	"github.com/gdamore/tcell/v2"
	"github.com/s-hammon/p"
)

type Threshold struct {
	Value          int64
	EqualOrGreater bool
}

// Update is one refresh of the watched values.
type Update struct {
	Online bool
	Addr   uint64
	Values []int32
	Error  string
}

// WriteFunc stores v in the idx-th watched value.
type WriteFunc func(idx int, v int32) error

func ParsePattern(s string) ([]Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ",")
	out := make([]Threshold, 0, len(parts))

	for _, part := range parts {
		part = strings.TrimSpace(part)
		eog := strings.HasSuffix(part, "+")
		num := strings.TrimSuffix(part, "+")

		v, err := strconv.ParseInt(num, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("strconv.ParseInt(%s): %v", num, err)
		}

		out = append(out, Threshold{Value: v, EqualOrGreater: eog})
	}

	return out, nil
}

// MatchSequence returns the indexes of every run of vals matching pattern.
func MatchSequence(vals []int32, pattern []Threshold) map[int]struct{} {
	hits := make(map[int]struct{})
	patternLen := len(pattern)

	if patternLen == 0 {
		return hits
	}

	limit := len(vals) - patternLen
	for i := 0; i <= limit; i++ {
		ok := true
		for j, th := range pattern {
			v := int64(vals[i+j])
			if th.EqualOrGreater {
				if v < th.Value {
					ok = false
					break
				}
			} else {
				if v != th.Value {
					ok = false
					break
				}
			}
		}

		if ok {
			for j := range pattern {
				hits[i+j] = struct{}{}
			}
		}
	}

	return hits
}

// ParseAssignment parses "index=value" as typed into the write prompt.
func ParseAssignment(s string) (int, int32, error) {
	idxText, valText, ok := strings.Cut(strings.TrimSpace(s), "=")
	if !ok {
		return 0, 0, fmt.Errorf("want index=value, got %q", s)
	}

	idx, err := strconv.Atoi(strings.TrimSpace(idxText))
	if err != nil || idx < 0 {
		return 0, 0, fmt.Errorf("bad index %q", idxText)
	}

	v, err := strconv.ParseInt(strings.TrimSpace(valText), 0, 32)
	if err != nil {
		return 0, 0, fmt.Errorf("bad value %q: %v", valText, err)
	}

	return idx, int32(v), nil
}

// RunTUI shows updates as a grid of rows x cols values, laid out column by
// column from the watched address. Updates are handed to the event loop so
// that all drawing happens on one goroutine.
func RunTUI(updates <-chan Update, rows, cols int, write WriteFunc) error {
	s, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("tcell.NewScreen: %v", err)
	}

	return watch(s, updates, rows, cols, write)
}

// watch owns s from Init to Fini. The forwarder stops with it, so nothing is
// posted to a finalized screen.
func watch(s tcell.Screen, updates <-chan Update, rows, cols int, write WriteFunc) error {
	if err := s.Init(); err != nil {
		return fmt.Errorf("screen.Init: %v", err)
	}
	defer s.Fini()

	done := make(chan struct{})
	forwarded := make(chan struct{})
	defer func() {
		close(done)
		<-forwarded
	}()

	go func() {
		defer close(forwarded)
		for {
			select {
			case <-done:
				return
			case u, ok := <-updates:
				if !ok {
					return
				}
				_ = s.PostEvent(tcell.NewEventInterrupt(u))
			}
		}
	}()

	return runLoop(s, rows, cols, write)
}

func runLoop(s tcell.Screen, rows, cols int, write WriteFunc) error {
	var (
		input   string
		pattern []Threshold
		last    Update
		prev    []int32
		status  string
	)

	redraw := func() {
		s.Clear()

		scrW, scrH := s.Size()
		layout := ui.ComputeLayout(scrW, scrH, rows, cols)

		var matches map[int]struct{}
		if len(pattern) > 0 && last.Online {
			matches = MatchSequence(last.Values, pattern)
		}

		startX := max((scrW-layout.BoxWidth)/2, 0)

		// Search box
		ui.DrawBox(s, startX, 0, layout.BoxWidth, 3, ui.StyleBox, "HIGHLIGHT")
		ui.DrawText(s, startX+layout.PaddingX, 1, ui.StyleCyan, input)

		// Main grid
		title := ""
		if last.Online {
			title = p.Format("0x%x", last.Addr)
		}
		ui.DrawBox(s, startX, 3, layout.BoxWidth, layout.Rows+2, ui.StyleBox, title)
		for c := range cols {
			for r := range layout.Rows {
				idx := r + c*rows
				if idx >= len(last.Values) {
					continue
				}

				val := last.Values[idx]
				cell := p.Format("%4d:%12d", idx, val)
				style := ui.StyleText
				if idx < len(prev) && prev[idx] != val {
					style = ui.StyleChanged
				}
				if _, ok := matches[idx]; ok {
					style = ui.StyleMatch
				}

				x := startX + layout.PaddingX + c*layout.CellWidth
				y := 4 + r
				ui.DrawText(s, x, y, style, cell)
			}
		}

		// Status box
		ui.DrawBox(s, startX, layout.StatusY, layout.BoxWidth, 3, ui.StyleBox, "")
		statetext := "ONLINE"
		statestyle := ui.StyleOK
		if !last.Online {
			statetext = "OFFLINE"
			if last.Error != "" {
				statetext += ": " + last.Error
			}
			statestyle = ui.StyleFail
		}
		if status != "" {
			statetext += "  " + status
		}

		ui.DrawTextCentered(s, startX+layout.BoxWidth/2, layout.StatusY+1, statestyle, statetext)

		// Help line
		help := "Esc/Ctrl+C: quit  |  Enter: apply pattern  |  Ctrl+W: write  |  Backspace: delete"
		ui.DrawTextCentered(s, scrW/2, layout.HelpY, ui.StyleDim, help)
		s.Show()
	}

	redraw()

loop:
	for {
		ev := s.PollEvent()
		switch ev := ev.(type) {
		case nil:
			break loop
		case *tcell.EventInterrupt:
			u, ok := ev.Data().(Update)
			if !ok {
				continue
			}
			if last.Online {
				prev = last.Values
			}
			last = u
			redraw()
		case *tcell.EventKey:
			switch ev.Key() {
			default:
				if ev.Rune() != 0 {
					input += string(ev.Rune())
				}
			case tcell.KeyEscape, tcell.KeyCtrlC:
				break loop
			case tcell.KeyEnter:
				if pat, err := ParsePattern(input); err == nil {
					pattern = pat
					status = ""
				} else {
					status = "bad pattern"
				}
			case tcell.KeyCtrlW:
				status = promptWrite(s, write)
			case tcell.KeyBackspace, tcell.KeyBackspace2:
				if len(input) > 0 {
					input = input[:len(input)-1]
				}
			}

			redraw()
		case *tcell.EventResize:
			s.Sync()
			redraw()
		}
	}

	return nil
}

func promptWrite(s tcell.Screen, write WriteFunc) string {
	if write == nil {
		return "read only"
	}

	text, ok := ui.Prompt(s, "WRITE", "index=value")
	if !ok {
		return ""
	}

	idx, v, err := ParseAssignment(text)
	if err != nil {
		return err.Error()
	}
	if err := write(idx, v); err != nil {
		return p.Format("write %d failed: %v", idx, err)
	}

	return p.Format("wrote %d to #%d", v, idx)
}
