package query

import (
	"context"

	"github.com/goliatone/go-shelf/core"
	"github.com/goliatone/go-shelf/naming"
)

// EntityReader is implemented by *core.Handle.
type EntityReader interface {
	Fetch(ctx context.Context, model string, id any) (naming.Attributes, error)
	FetchAll(ctx context.Context, model string, opts core.FetchOptions) ([]naming.Attributes, error)
}

type FetchEntityQuery struct {
	reader EntityReader
}

func NewFetchEntityQuery(reader EntityReader) *FetchEntityQuery {
	return &FetchEntityQuery{reader: reader}
}

func (q *FetchEntityQuery) Query(ctx context.Context, msg FetchEntityMessage) (naming.Attributes, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: entity reader is required")
	}
	return q.reader.Fetch(ctx, msg.Model, msg.ID)
}

type ListEntitiesQuery struct {
	reader EntityReader
}

func NewListEntitiesQuery(reader EntityReader) *ListEntitiesQuery {
	return &ListEntitiesQuery{reader: reader}
}

func (q *ListEntitiesQuery) Query(ctx context.Context, msg ListEntitiesMessage) ([]naming.Attributes, error) {
	if q == nil || q.reader == nil {
		return nil, queryDependencyError("query: entity reader is required")
	}
	return q.reader.FetchAll(ctx, msg.Model, msg.Options)
}
