package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/tgcon/tgcon/internal/state"
)

// Frame is the finished render job handed to the terminal renderer: two
// pane descriptors plus the status and help lines. The renderer draws
// exactly this and nothing else.
type Frame struct {
	Left   Pane
	Right  Pane
	Status string
	Help   string
	Auth   *AuthPrompt // non-nil while login is pending; replaces Right
}

// AuthPrompt carries the pending login challenge for the auth view.
type AuthPrompt struct {
	Message string
	Code    string
}

// Pane is an ordered list of display rows plus cursor/focus markers.
type Pane struct {
	Title   string
	Rows    []Row
	Cursor  int
	Scroll  int
	Focused bool
}

// Row is one entity's rendition. Messages may span several lines (header,
// body, image grid); list rows are a single line.
type Row struct {
	ID       int64
	Lines    []string
	Selected bool
	Unread   bool
}

const helpLine = " Tab:switch pane  Up/Down:move  Enter:open  Esc:back  Ctrl+Q:quit "

func listRow(level state.Level, it state.Item, now time.Time) Row {
	var text string
	switch level {
	case state.LevelFolders:
		text = it.Title
		if it.Preview != "" {
			text += "  (" + it.Preview + ")"
		}
	default:
		text = it.Title
		if it.Preview != "" {
			text += " - " + firstLine(it.Preview)
		}
		if !it.SentAt.IsZero() {
			text += "  " + formatTimestamp(it.SentAt, now)
		}
	}
	if it.Unread > 0 {
		text = fmt.Sprintf("* %s (%d)", text, it.Unread)
	} else {
		text = "  " + text
	}
	return Row{ID: it.ID, Lines: []string{text}, Unread: it.Unread > 0}
}

func (s *Scheduler) messageRow(it state.Item, now time.Time) Row {
	row := Row{ID: it.ID, Unread: !it.Read}

	if it.Deleted {
		row.Lines = []string{"[message deleted]"}
		return row
	}

	header := fmt.Sprintf("%s  %s", it.Sender, formatTimestamp(it.SentAt, now))
	if it.Edited {
		header += " (edited)"
	}
	row.Lines = append(row.Lines, header)

	if it.Body != "" {
		row.Lines = append(row.Lines, strings.Split(it.Body, "\n")...)
	}
	if len(it.Image) > 0 {
		row.Lines = append(row.Lines, s.imageLines(it.ID, it.Image)...)
	}
	return row
}

// formatTimestamp renders same-day times as a clock and older ones as a
// date; rebuilt on every tick so relative rendering stays current.
func formatTimestamp(t time.Time, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return t.Format("15:04")
	}
	return t.Format("01/02")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func statusLine(st state.StatusSnapshot, now time.Time) string {
	parts := []string{st.Session, st.Runtime}
	if st.Typing != "" {
		parts = append(parts, st.Typing)
	}
	if st.Flash != "" {
		parts = append(parts, st.Flash)
	}
	parts = append(parts, now.Format("15:04"))
	return " " + strings.Join(parts, " | ")
}
