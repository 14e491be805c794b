package command

import (
	"strings"

	"github.com/goliatone/go-shelf/naming"
)

const (
	TypeSaveEntity    = "shelf.command.entity.save"
	TypeDestroyEntity = "shelf.command.entity.destroy"
)

// SaveEntityMessage inserts Attributes when they carry no id and updates the
// stored entity otherwise.
type SaveEntityMessage struct {
	Model      string
	Attributes naming.Attributes
}

func (SaveEntityMessage) Type() string { return TypeSaveEntity }

func (m SaveEntityMessage) Validate() error {
	if strings.TrimSpace(m.Model) == "" {
		return commandValidationError("model", "model is required")
	}
	if len(m.Attributes) == 0 {
		return commandValidationError("attributes", "attributes are required")
	}
	return nil
}

type DestroyEntityMessage struct {
	Model string
	ID    any
}

func (DestroyEntityMessage) Type() string { return TypeDestroyEntity }

func (m DestroyEntityMessage) Validate() error {
	if strings.TrimSpace(m.Model) == "" {
		return commandValidationError("model", "model is required")
	}
	if m.ID == nil {
		return commandValidationError("id", "id is required")
	}
	if id, ok := m.ID.(string); ok && strings.TrimSpace(id) == "" {
		return commandValidationError("id", "id is required")
	}
	return nil
}
