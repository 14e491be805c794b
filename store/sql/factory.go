package sqlstore

import (
	"fmt"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// ResolveBunDB accepts a *bun.DB or anything exposing DB() *bun.DB, such as a
// go-persistence-bun client or a shelf handle.
func ResolveBunDB(candidate any) (*bun.DB, error) {
	switch typed := candidate.(type) {
	case nil:
		return nil, fmt.Errorf("sqlstore: persistence client is required")
	case *bun.DB:
		if typed == nil {
			return nil, fmt.Errorf("sqlstore: bun db is required")
		}
		return typed, nil
	case interface{ DB() *bun.DB }:
		db := typed.DB()
		if db == nil {
			return nil, fmt.Errorf("sqlstore: persistence client returned nil bun db")
		}
		return db, nil
	default:
		return nil, fmt.Errorf("sqlstore: unsupported persistence client type %T", candidate)
	}
}

// NewRepository builds a typed go-repository-bun repository on the database
// behind candidate and checks its handler wiring.
func NewRepository[T any](candidate any, handlers repository.ModelHandlers[T]) (repository.Repository[T], error) {
	db, err := ResolveBunDB(candidate)
	if err != nil {
		return nil, err
	}
	repo := repository.NewRepository[T](db, handlers)
	if validator, ok := repo.(repository.Validator); ok {
		if err := validator.Validate(); err != nil {
			return nil, fmt.Errorf("sqlstore: invalid repository wiring: %w", err)
		}
	}
	return repo, nil
}
