package history

import (
	"time"

	"github.com/google/uuid"
)

// Kind classifies what produced an action.
type Kind int

const (
	Draw Kind = iota
	Erase
	Model
)

func (k Kind) String() string {
	switch k {
	case Draw:
		return "draw"
	case Erase:
		return "erase"
	case Model:
		return "model"
	default:
		return "unknown"
	}
}

// Description returns the label shown for actions of this kind.
func (k Kind) Description() string {
	switch k {
	case Draw:
		return "Draw edges"
	case Erase:
		return "Erase edges"
	case Model:
		return "AI segmentation"
	default:
		return "Edit edges"
	}
}

// Action is one undoable edit: the edge set before and after it.
type Action struct {
	ID          uuid.UUID
	Kind        Kind
	Description string
	Previous    EdgeSet
	Next        EdgeSet
	Timestamp   time.Time
}

// NewAction creates an action of the given kind. Both snapshots are stored
// as given; callers pass sets they no longer mutate.
func NewAction(kind Kind, previous, next EdgeSet) *Action {
	return &Action{
		ID:          uuid.New(),
		Kind:        kind,
		Description: kind.Description(),
		Previous:    previous,
		Next:        next,
		Timestamp:   time.Now(),
	}
}
