package tui

import (
	"context"
	"strings"
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
	"github.com/rivo/tview"
	"github.com/tgcon/tgcon/internal/event"
	"github.com/tgcon/tgcon/internal/input"
	"github.com/tgcon/tgcon/internal/render"
	"go.uber.org/zap"
)

// App is the terminal driver: it owns the tview widgets, translates key
// events into queue events, and draws the frames the render scheduler
// hands it. It holds no view state of its own.
type App struct {
	app    *tview.Application
	left   *tview.TextView
	right  *tview.TextView
	status *tview.TextView
	help   *tview.TextView
	queue  *event.Queue
	theme  *Theme
	logger *zap.Logger

	mu     sync.Mutex
	leftH  int
	rightH int
}

// NewApp creates the application shell.
func NewApp(queue *event.Queue, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	theme := DefaultTheme()

	a := &App{
		app:    tview.NewApplication(),
		left:   newPaneView(theme, " Chats "),
		right:  newPaneView(theme, " Messages "),
		status: tview.NewTextView().SetDynamicColors(true),
		help:   tview.NewTextView().SetDynamicColors(true),
		queue:  queue,
		theme:  theme,
		logger: logger,
	}
	a.status.SetBackgroundColor(theme.BgColor)
	a.status.SetTextColor(theme.StatusColor)
	a.help.SetBackgroundColor(theme.BgColor)
	a.help.SetTextColor(theme.HelpColor)

	a.setupLayout()
	return a
}

func newPaneView(theme *Theme, title string) *tview.TextView {
	tv := tview.NewTextView().SetDynamicColors(true).SetWrap(false)
	tv.SetBorder(true)
	tv.SetTitle(title)
	tv.SetTitleColor(theme.TitleColor)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	return tv
}

func (a *App) setupLayout() {
	panes := tview.NewFlex().
		AddItem(a.left, 0, 1, false).
		AddItem(a.right, 0, 2, false)

	root := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(panes, 0, 1, true).
		AddItem(a.status, 1, 0, false).
		AddItem(a.help, 1, 0, false)

	a.app.SetRoot(root, true)

	a.app.SetInputCapture(func(ev *tcell.EventKey) *tcell.EventKey {
		key := input.Decode(ev)
		if key == input.KeyUnknown {
			return ev
		}
		// Never block the UI thread on a full queue; a dropped key is
		// recoverable, a frozen terminal is not.
		if !a.queue.TryPush(event.New(event.KindKey, key)) {
			a.logger.Warn("event queue full, key dropped", zap.String("key", key.String()))
		}
		return nil
	})
}

// Run blocks on the terminal event loop until Stop is called or the
// context is cancelled.
func (a *App) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		a.app.Stop()
	}()
	return a.app.Run()
}

// Stop terminates the terminal event loop.
func (a *App) Stop() {
	a.app.Stop()
}

// Draw implements render.Renderer. Called from the scheduler goroutine;
// the actual drawing is marshalled onto the UI thread.
func (a *App) Draw(f *render.Frame) {
	a.app.QueueUpdateDraw(func() {
		a.draw(f)
	})
}

func (a *App) draw(f *render.Frame) {
	a.reportGeometry()

	a.setFocusStyle(a.left, f.Left.Focused)
	a.setFocusStyle(a.right, f.Right.Focused)
	if f.Left.Title != "" {
		a.left.SetTitle(" " + f.Left.Title + " ")
	}
	a.right.SetTitle(" " + f.Right.Title + " ")

	_, _, lw, lh := a.left.GetInnerRect()
	_, _, rw, rh := a.right.GetInnerRect()

	a.left.SetText(renderPane(f.Left, lw, lh))
	if f.Auth != nil {
		a.right.SetText(renderAuth(f.Auth))
	} else {
		a.right.SetText(renderPane(f.Right, rw, rh))
	}

	a.status.SetText(tview.Escape(f.Status))
	a.help.SetText(tview.Escape(f.Help))
}

// reportGeometry pushes a resize event when the pane viewports change, so
// scroll math in the state store tracks the real terminal size.
func (a *App) reportGeometry() {
	_, _, _, lh := a.left.GetInnerRect()
	_, _, _, rh := a.right.GetInnerRect()

	a.mu.Lock()
	changed := lh != a.leftH || rh != a.rightH
	a.leftH, a.rightH = lh, rh
	a.mu.Unlock()

	if changed && lh > 0 && rh > 0 {
		a.queue.TryPush(event.New(event.KindResize, input.Resize{
			LeftHeight:  lh,
			RightHeight: rh,
		}))
	}
}

func (a *App) setFocusStyle(tv *tview.TextView, focused bool) {
	if focused {
		tv.SetBorderColor(a.theme.BorderFocusColor)
	} else {
		tv.SetBorderColor(a.theme.BorderColor)
	}
}

// renderPane turns a frame pane into tagged text, one entity row after
// another starting at the scroll offset. The selected row is inverted;
// unread rows are tinted.
func renderPane(p render.Pane, width, height int) string {
	var sb strings.Builder
	lines := 0

	for i := paneStart(p, height); i < len(p.Rows) && lines < height; i++ {
		row := p.Rows[i]
		for _, line := range row.Lines {
			if lines >= height {
				break
			}
			text := tview.Escape(runewidth.Truncate(line, width, "…"))
			switch {
			case row.Selected && p.Focused:
				sb.WriteString("[black:aqua]" + pad(text, width) + "[-:-]")
			case row.Selected:
				sb.WriteString("[black:grey]" + pad(text, width) + "[-:-]")
			case row.Unread:
				sb.WriteString("[orange]" + text + "[-]")
			default:
				sb.WriteString(text)
			}
			sb.WriteByte('\n')
			lines++
		}
	}
	return sb.String()
}

// paneStart picks the first row to draw. Scrolling happens in whole
// entities, but a row with an image grid spans many terminal lines, so
// the scroll offset alone can push the selected row below the drawn
// area. Walk back from the cursor and keep as many preceding rows as
// still fit within the line budget.
func paneStart(p render.Pane, height int) int {
	if p.Cursor < p.Scroll || p.Cursor >= len(p.Rows) {
		return p.Scroll
	}
	lines := len(p.Rows[p.Cursor].Lines)
	start := p.Cursor
	for start > p.Scroll && lines+len(p.Rows[start-1].Lines) <= height {
		start--
		lines += len(p.Rows[start].Lines)
	}
	return start
}

func renderAuth(auth *render.AuthPrompt) string {
	var sb strings.Builder
	sb.WriteString("\n  ")
	sb.WriteString(tview.Escape(auth.Message))
	sb.WriteString("\n\n")
	sb.WriteString(renderQR(auth.Code))
	sb.WriteString("\n  [::d]Waiting for authentication...[-:-:-]")
	return sb.String()
}

func pad(s string, width int) string {
	if w := runewidth.StringWidth(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return s
}

var _ render.Renderer = (*App)(nil)
