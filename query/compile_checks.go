package query

import (
	gocmd "github.com/goliatone/go-command"
	"github.com/goliatone/go-shelf/core"
	"github.com/goliatone/go-shelf/naming"
)

var (
	_ gocmd.Querier[FetchEntityMessage, naming.Attributes]    = (*FetchEntityQuery)(nil)
	_ gocmd.Querier[ListEntitiesMessage, []naming.Attributes] = (*ListEntitiesQuery)(nil)

	_ EntityReader = (*core.Handle)(nil)
)
