package shelf

import (
	"fmt"

	"github.com/goliatone/go-command/runner"
	gocommandadapter "github.com/goliatone/go-shelf/adapters/gocommand"
	shelfcommand "github.com/goliatone/go-shelf/command"
	shelfquery "github.com/goliatone/go-shelf/query"
)

// EntityService is the read/write surface behind a facade.
type EntityService = gocommandadapter.EntityService

type Commands struct {
	SaveEntity    *shelfcommand.SaveEntityCommand
	DestroyEntity *shelfcommand.DestroyEntityCommand
}

type Queries struct {
	FetchEntity  *shelfquery.FetchEntityQuery
	ListEntities *shelfquery.ListEntitiesQuery
}

// Facade bundles the command and query handlers for one entity service,
// usually a *Handle.
type Facade struct {
	service  EntityService
	commands Commands
	queries  Queries
}

func NewFacade(service EntityService) (*Facade, error) {
	if service == nil {
		return nil, fmt.Errorf("shelf: entity service is required")
	}
	return &Facade{
		service: service,
		commands: Commands{
			SaveEntity:    shelfcommand.NewSaveEntityCommand(service),
			DestroyEntity: shelfcommand.NewDestroyEntityCommand(service),
		},
		queries: Queries{
			FetchEntity:  shelfquery.NewFetchEntityQuery(service),
			ListEntities: shelfquery.NewListEntitiesQuery(service),
		},
	}, nil
}

func (f *Facade) Commands() Commands {
	if f == nil {
		return Commands{}
	}
	return f.commands
}

func (f *Facade) Queries() Queries {
	if f == nil {
		return Queries{}
	}
	return f.queries
}

func (f *Facade) Service() EntityService {
	if f == nil {
		return nil
	}
	return f.service
}

// Subscribe registers the facade's service on the command dispatcher through
// adapter. Callers drop the handlers with the returned subscriptions.
func (f *Facade) Subscribe(
	adapter *gocommandadapter.RegistryAdapter,
	runnerOpts ...runner.Option,
) (gocommandadapter.Subscriptions, error) {
	if f == nil || f.service == nil {
		return nil, fmt.Errorf("shelf: facade is not configured")
	}
	return gocommandadapter.RegisterEntityHandlers(adapter, f.service, runnerOpts...)
}
