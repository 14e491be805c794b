package query

import (
	"strings"

	"github.com/goliatone/go-shelf/core"
)

const (
	TypeFetchEntity  = "shelf.query.entity.fetch"
	TypeListEntities = "shelf.query.entity.list"
)

type FetchEntityMessage struct {
	Model string
	ID    any
}

func (FetchEntityMessage) Type() string { return TypeFetchEntity }

func (m FetchEntityMessage) Validate() error {
	if strings.TrimSpace(m.Model) == "" {
		return queryValidationError("model", "model is required")
	}
	if m.ID == nil {
		return queryValidationError("id", "id is required")
	}
	if id, ok := m.ID.(string); ok && strings.TrimSpace(id) == "" {
		return queryValidationError("id", "id is required")
	}
	return nil
}

// ListEntitiesMessage filters by attribute equality. Where and OrderBy use
// application attribute names.
type ListEntitiesMessage struct {
	Model   string
	Options core.FetchOptions
}

func (ListEntitiesMessage) Type() string { return TypeListEntities }

func (m ListEntitiesMessage) Validate() error {
	if strings.TrimSpace(m.Model) == "" {
		return queryValidationError("model", "model is required")
	}
	if m.Options.Limit < 0 {
		return queryValidationError("limit", "limit must be >= 0")
	}
	if m.Options.Offset < 0 {
		return queryValidationError("offset", "offset must be >= 0")
	}
	return nil
}
