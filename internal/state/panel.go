package state

// PaneID names one of the two display panes.
type PaneID int

const (
	// PaneNav is the left pane: folder list or a folder's chat list.
	PaneNav PaneID = iota
	// PaneMessages is the right pane: the open chat's messages.
	PaneMessages
)

// Level is what kind of sequence a pane currently renders.
type Level int

const (
	LevelFolders Level = iota
	LevelChats
	LevelMessages
)

// DefaultViewportHeight is assumed until the renderer reports real geometry.
const DefaultViewportHeight = 20

// PanelState is the navigation state of one pane. Cursor indexes the
// currently rendered sequence and is -1 when the sequence is empty; it is
// re-derived whenever the sequence changes, never left dangling.
type PanelState struct {
	Level    Level
	ParentID int64 // folder ID at LevelChats, chat ID at LevelMessages
	Cursor   int
	Scroll   int
	Height   int
	Focused  bool
}

// visibleEnd returns one past the last visible index.
func (p PanelState) visibleEnd() int {
	h := p.Height
	if h <= 0 {
		h = DefaultViewportHeight
	}
	return p.Scroll + h
}

// navFrame is one back-stack entry: a full snapshot of both panes plus the
// sequences they rendered, so Esc restores exactly the position that was
// active before the matching Enter even if entities changed in between.
type navFrame struct {
	Left     PanelState
	Right    PanelState
	LeftSeq  []int64
	RightSeq []int64
}

// reanchorCursor maps a cursor on oldSeq to the equivalent position on
// newSeq: the same entity if it survived, otherwise the nearest survivor at
// or below the old position, then the nearest above, clamped to bounds.
func reanchorCursor(oldSeq, newSeq []int64, oldCursor int) int {
	if len(newSeq) == 0 {
		return -1
	}
	if oldCursor < 0 {
		// Pane was empty; select the first arrival.
		return 0
	}
	if oldCursor < len(oldSeq) {
		if idx := indexOf(newSeq, oldSeq[oldCursor]); idx >= 0 {
			return idx
		}
		for i := oldCursor + 1; i < len(oldSeq); i++ {
			if idx := indexOf(newSeq, oldSeq[i]); idx >= 0 {
				return idx
			}
		}
		for i := oldCursor - 1; i >= 0; i-- {
			if idx := indexOf(newSeq, oldSeq[i]); idx >= 0 {
				return idx
			}
		}
	}
	return clamp(oldCursor, 0, len(newSeq)-1)
}

// reanchorScroll keeps the entity previously at the top of the viewport at
// the top, falling back to its nearest surviving neighbor above, so items
// arriving outside the viewport never shift what the user is reading.
func reanchorScroll(oldSeq, newSeq []int64, oldScroll int) int {
	if len(newSeq) == 0 {
		return 0
	}
	if oldScroll >= 0 && oldScroll < len(oldSeq) {
		if idx := indexOf(newSeq, oldSeq[oldScroll]); idx >= 0 {
			return idx
		}
		for i := oldScroll - 1; i >= 0; i-- {
			if idx := indexOf(newSeq, oldSeq[i]); idx >= 0 {
				return idx
			}
		}
		for i := oldScroll + 1; i < len(oldSeq); i++ {
			if idx := indexOf(newSeq, oldSeq[i]); idx >= 0 {
				return idx
			}
		}
	}
	return clamp(oldScroll, 0, len(newSeq)-1)
}

func indexOf(seq []int64, id int64) int {
	for i, v := range seq {
		if v == id {
			return i
		}
	}
	return -1
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
