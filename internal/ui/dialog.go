package ui

import "github.com/gdamore/tcell/v2"

const promptMinWidth = 30

// Prompt draws a boxed question over whatever is on s and reads one line.
// Enter accepts the input, Esc or Ctrl+C cancels it.
func Prompt(s tcell.Screen, title, message string) (string, bool) {
	var input string
	for {
		drawPrompt(s, title, message, input)

		switch ev := s.PollEvent().(type) {
		case nil:
			return "", false
		case *tcell.EventKey:
			switch ev.Key() {
			case tcell.KeyEnter:
				return input, true
			case tcell.KeyEscape, tcell.KeyCtrlC:
				return "", false
			case tcell.KeyBackspace, tcell.KeyBackspace2:
				if len(input) > 0 {
					input = input[:len(input)-1]
				}
			case tcell.KeyRune:
				input += string(ev.Rune())
			}
		case *tcell.EventResize:
			s.Sync()
		}
	}
}

func drawPrompt(s tcell.Screen, title, message, input string) {
	scrW, scrH := s.Size()
	w := max(len(message), len(title)+4, len(input)+1, promptMinWidth) + 2*boxPaddingX
	h := 5
	x := max((scrW-w)/2, 0)
	y := max((scrH-h)/2, 0)

	FillRect(s, x, y, w, h, StylePrompt)
	DrawBox(s, x, y, w, h, StylePrompt, title)
	DrawText(s, x+boxPaddingX, y+1, StylePrompt, message)
	DrawText(s, x+boxPaddingX, y+3, StylePrompt.Bold(true), input+"_")
	s.Show()
}

// Dialog prompts on a screen of its own, for callers without a running UI.
type Dialog struct {
	NewScreen func() (tcell.Screen, error)
}

func (d Dialog) Prompt(title, message string) (string, bool, error) {
	newScreen := d.NewScreen
	if newScreen == nil {
		newScreen = tcell.NewScreen
	}

	s, err := newScreen()
	if err != nil {
		return "", false, err
	}
	if err := s.Init(); err != nil {
		return "", false, err
	}
	defer s.Fini()

	v, ok := Prompt(s, title, message)
	return v, ok, nil
}
