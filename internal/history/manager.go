package history

import (
	"slices"

	"go.uber.org/zap"

	"github.com/Faultbox/lithicmark/internal/logger"
)

// DefaultMaxSize is the undo depth used when none is configured.
const DefaultMaxSize = 100

// Manager holds the undo and redo stacks of one annotation session.
//
// The timeline is indexed 0 for the base state, 1..len(undo) for undo
// entries oldest first, then the redo entries starting with the next one to
// redo. The view index is the timeline position currently displayed and may
// differ from the stack boundary after a jump; undo, redo and push realign
// the boundary to the view before acting.
type Manager struct {
	undo      []*Action
	redo      []*Action // top is the next action to redo
	view      int
	maxSize   int
	base      EdgeSet
	listeners []func(*Manager)
}

// NewManager creates a manager keeping at most maxSize undo entries.
// A non-positive maxSize selects DefaultMaxSize.
func NewManager(maxSize int) *Manager {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Manager{maxSize: maxSize, base: EdgeSet{}}
}

// AddListener registers fn to run after every change.
func (m *Manager) AddListener(fn func(*Manager)) {
	m.listeners = append(m.listeners, fn)
}

func (m *Manager) notify() {
	for _, fn := range m.listeners {
		fn(m)
	}
}

// SetBase sets the state at timeline index 0. It stays fixed until the
// next SetBase; eviction never moves it.
func (m *Manager) SetBase(s EdgeSet) {
	m.base = s.Clone()
}

// Push records a new action. Anything after the view index is discarded.
// When the undo stack overflows its oldest entries are dropped; the base
// state at index 0 is kept.
func (m *Manager) Push(a *Action) {
	m.syncToView()
	m.redo = nil
	m.undo = append(m.undo, a)

	if over := len(m.undo) - m.maxSize; over > 0 {
		m.undo = slices.Delete(m.undo, 0, over)
		logger.Debug("history evicted oldest actions", zap.Int("count", over))
	}

	m.view = len(m.undo)
	m.notify()
}

// Undo moves the action before the view onto the redo stack and returns
// it. The caller restores its Previous set. Returns nil if there is nothing
// to undo.
func (m *Manager) Undo() *Action {
	m.syncToView()
	if len(m.undo) == 0 {
		return nil
	}

	a := m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
	m.redo = append(m.redo, a)
	m.view = len(m.undo)
	m.notify()
	return a
}

// Redo moves the next action back onto the undo stack and returns it. The
// caller restores its Next set. Returns nil if there is nothing to redo.
func (m *Manager) Redo() *Action {
	m.syncToView()
	if len(m.redo) == 0 {
		return nil
	}

	a := m.redo[len(m.redo)-1]
	m.redo = m.redo[:len(m.redo)-1]
	m.undo = append(m.undo, a)
	m.view = len(m.undo)
	m.notify()
	return a
}

// JumpToViewState moves the view index without touching the stacks.
// Returns false if target is out of range or already the view.
func (m *Manager) JumpToViewState(target int) bool {
	if target < 0 || target > m.Len() || target == m.view {
		return false
	}
	m.view = target
	m.notify()
	return true
}

// Clear empties both stacks and resets the view to the base state.
func (m *Manager) Clear() {
	m.undo = nil
	m.redo = nil
	m.view = 0
	m.notify()
}

// StateAt returns a copy of the edge set at a timeline index.
func (m *Manager) StateAt(index int) (EdgeSet, bool) {
	if index < 0 || index > m.Len() {
		return nil, false
	}
	if index == 0 {
		return m.base.Clone(), true
	}
	return m.entry(index).Next.Clone(), true
}

// entry returns the action at timeline index i (1-based).
func (m *Manager) entry(i int) *Action {
	if i <= len(m.undo) {
		return m.undo[i-1]
	}
	return m.redo[len(m.redo)-(i-len(m.undo))]
}

// syncToView shifts entries between the stacks until the undo stack ends
// at the view index.
func (m *Manager) syncToView() {
	for len(m.undo) > m.view {
		a := m.undo[len(m.undo)-1]
		m.undo = m.undo[:len(m.undo)-1]
		m.redo = append(m.redo, a)
	}
	for len(m.undo) < m.view && len(m.redo) > 0 {
		a := m.redo[len(m.redo)-1]
		m.redo = m.redo[:len(m.redo)-1]
		m.undo = append(m.undo, a)
	}
}

// CanUndo reports whether there is a state before the view.
func (m *Manager) CanUndo() bool { return m.view > 0 }

// CanRedo reports whether there is a state after the view.
func (m *Manager) CanRedo() bool { return m.view < m.Len() }

// ViewIndex returns the displayed timeline position.
func (m *Manager) ViewIndex() int { return m.view }

// Len returns the number of recorded actions.
func (m *Manager) Len() int { return len(m.undo) + len(m.redo) }

// MaxSize returns the undo capacity.
func (m *Manager) MaxSize() int { return m.maxSize }

// UndoStack returns the undo entries, oldest first.
func (m *Manager) UndoStack() []*Action { return slices.Clone(m.undo) }

// RedoStack returns the redo entries, next to redo first.
func (m *Manager) RedoStack() []*Action {
	r := slices.Clone(m.redo)
	slices.Reverse(r)
	return r
}

// Timeline returns all actions in timeline order.
func (m *Manager) Timeline() []*Action {
	return append(m.UndoStack(), m.RedoStack()...)
}
