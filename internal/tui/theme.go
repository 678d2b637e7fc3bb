package tui

import "github.com/gdamore/tcell/v2"

// Theme holds color constants for the TUI.
type Theme struct {
	BgColor          tcell.Color
	FgColor          tcell.Color
	BorderColor      tcell.Color
	BorderFocusColor tcell.Color
	CursorFg         tcell.Color
	CursorBg         tcell.Color
	UnreadColor      tcell.Color
	TitleColor       tcell.Color
	StatusColor      tcell.Color
	HelpColor        tcell.Color
}

// DefaultTheme returns a dark terminal theme.
func DefaultTheme() *Theme {
	return &Theme{
		BgColor:          tcell.ColorBlack,
		FgColor:          tcell.ColorCadetBlue,
		BorderColor:      tcell.ColorDodgerBlue,
		BorderFocusColor: tcell.ColorLightSkyBlue,
		CursorFg:         tcell.ColorBlack,
		CursorBg:         tcell.ColorAqua,
		UnreadColor:      tcell.ColorOrange,
		TitleColor:       tcell.ColorFuchsia,
		StatusColor:      tcell.ColorNavajoWhite,
		HelpColor:        tcell.ColorDodgerBlue,
	}
}
