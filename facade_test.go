package shelf

import (
	"context"
	"testing"

	"github.com/goliatone/go-command"
	gocommandadapter "github.com/goliatone/go-shelf/adapters/gocommand"
	shelfcommand "github.com/goliatone/go-shelf/command"
	shelfquery "github.com/goliatone/go-shelf/query"
)

type stubEntityService struct {
	saved     Attributes
	destroyed any
}

func (s *stubEntityService) Save(_ context.Context, _ string, attrs Attributes) (Attributes, error) {
	s.saved = attrs
	return Attributes{"id": "ent_1", "title": attrs["title"]}, nil
}

func (s *stubEntityService) Destroy(_ context.Context, _ string, id any) error {
	s.destroyed = id
	return nil
}

func (s *stubEntityService) Fetch(_ context.Context, _ string, id any) (Attributes, error) {
	return Attributes{"id": id}, nil
}

func (s *stubEntityService) FetchAll(_ context.Context, _ string, _ FetchOptions) ([]Attributes, error) {
	return []Attributes{{"id": "ent_1"}, {"id": "ent_2"}}, nil
}

func TestNewFacade_WiresCommandsAndQueries(t *testing.T) {
	if _, err := NewFacade(nil); err == nil {
		t.Fatalf("expected nil service to fail")
	}

	svc := &stubEntityService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}
	commands := facade.Commands()
	if commands.SaveEntity == nil || commands.DestroyEntity == nil {
		t.Fatalf("expected command handlers to be wired")
	}
	queries := facade.Queries()
	if queries.FetchEntity == nil || queries.ListEntities == nil {
		t.Fatalf("expected query handlers to be wired")
	}
	if facade.Service() != svc {
		t.Fatalf("expected facade to keep its service")
	}
}

func TestFacade_CommandAndQueryDelegation(t *testing.T) {
	ctx := context.Background()
	svc := &stubEntityService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	if err := facade.Commands().SaveEntity.Execute(ctx, shelfcommand.SaveEntityMessage{
		Model:      "Post",
		Attributes: Attributes{"title": "hello"},
	}); err != nil {
		t.Fatalf("execute save: %v", err)
	}
	if svc.saved["title"] != "hello" {
		t.Fatalf("unexpected save delegation %#v", svc.saved)
	}
	if err := facade.Commands().DestroyEntity.Execute(ctx, shelfcommand.DestroyEntityMessage{Model: "Post", ID: "ent_1"}); err != nil {
		t.Fatalf("execute destroy: %v", err)
	}
	if svc.destroyed != "ent_1" {
		t.Fatalf("unexpected destroy delegation %#v", svc.destroyed)
	}

	entity, err := facade.Queries().FetchEntity.Query(ctx, shelfquery.FetchEntityMessage{Model: "Post", ID: "ent_2"})
	if err != nil || entity["id"] != "ent_2" {
		t.Fatalf("unexpected fetch result %#v %v", entity, err)
	}
	rows, err := facade.Queries().ListEntities.Query(ctx, shelfquery.ListEntitiesMessage{Model: "Post"})
	if err != nil || len(rows) != 2 {
		t.Fatalf("unexpected list result %#v %v", rows, err)
	}
}

func TestFacade_NilReceiver(t *testing.T) {
	var facade *Facade
	if facade.Commands().SaveEntity != nil || facade.Queries().FetchEntity != nil || facade.Service() != nil {
		t.Fatalf("expected zero values from nil facade")
	}
}

func TestFacade_SubscribeRoutesThroughDispatcher(t *testing.T) {
	ctx := context.Background()
	svc := &stubEntityService{}
	facade, err := NewFacade(svc)
	if err != nil {
		t.Fatalf("new facade: %v", err)
	}

	subscriptions, err := facade.Subscribe(gocommandadapter.NewRegistryAdapter(command.NewRegistry()))
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	t.Cleanup(subscriptions.Unsubscribe)

	if err := gocommandadapter.Dispatch(ctx, shelfcommand.SaveEntityMessage{
		Model:      "Post",
		Attributes: Attributes{"title": "routed"},
	}); err != nil {
		t.Fatalf("dispatch save: %v", err)
	}
	if svc.saved["title"] != "routed" {
		t.Fatalf("expected dispatched save to reach the service, got %#v", svc.saved)
	}

	rows, err := gocommandadapter.Query[shelfquery.ListEntitiesMessage, []Attributes](ctx, shelfquery.ListEntitiesMessage{Model: "Post"})
	if err != nil || len(rows) != 2 {
		t.Fatalf("unexpected dispatched list %#v %v", rows, err)
	}

	var nilFacade *Facade
	if _, err := nilFacade.Subscribe(gocommandadapter.NewRegistryAdapter(nil)); err == nil {
		t.Fatalf("expected nil facade to fail")
	}
}
