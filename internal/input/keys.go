package input

import "github.com/gdamore/tcell/v2"

// Key is a decoded navigation key. The terminal driver translates raw
// tcell events into this small set; anything else is KeyUnknown and is
// ignored by the dispatcher.
type Key int

const (
	KeyUnknown Key = iota
	KeyTab
	KeyUp
	KeyDown
	KeyPageUp
	KeyPageDown
	KeyEnter
	KeyEsc
	KeyQuit
)

// String returns the key's display name for logs and the help line.
func (k Key) String() string {
	switch k {
	case KeyTab:
		return "Tab"
	case KeyUp:
		return "Up"
	case KeyDown:
		return "Down"
	case KeyPageUp:
		return "PgUp"
	case KeyPageDown:
		return "PgDn"
	case KeyEnter:
		return "Enter"
	case KeyEsc:
		return "Esc"
	case KeyQuit:
		return "Ctrl+Q"
	}
	return "?"
}

// Decode maps a tcell key event to a navigation key.
func Decode(ev *tcell.EventKey) Key {
	switch ev.Key() {
	case tcell.KeyTab, tcell.KeyBacktab:
		return KeyTab
	case tcell.KeyUp:
		return KeyUp
	case tcell.KeyDown:
		return KeyDown
	case tcell.KeyPgUp:
		return KeyPageUp
	case tcell.KeyPgDn:
		return KeyPageDown
	case tcell.KeyEnter:
		return KeyEnter
	case tcell.KeyEscape:
		return KeyEsc
	case tcell.KeyCtrlQ:
		return KeyQuit
	}
	return KeyUnknown
}

// Resize is pushed by the renderer when pane geometry changes.
type Resize struct {
	LeftHeight  int
	RightHeight int
}
