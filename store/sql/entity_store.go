package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

var ErrEntityNotFound = errors.New("sqlstore: entity not found")

type ListOptions struct {
	Where   map[string]any
	OrderBy string
	Desc    bool
	Limit   int
	Offset  int
}

// EntityStore reads and writes untyped rows of a single table. Column names
// are used as given; callers translate keys before and after.
type EntityStore struct {
	db       *bun.DB
	table    string
	idColumn string
}

func NewEntityStore(db *bun.DB, table string, idColumn string) (*EntityStore, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlstore: bun db is required")
	}
	table = strings.TrimSpace(table)
	if table == "" {
		return nil, fmt.Errorf("sqlstore: table is required")
	}
	idColumn = strings.TrimSpace(idColumn)
	if idColumn == "" {
		idColumn = "id"
	}
	return &EntityStore{db: db, table: table, idColumn: idColumn}, nil
}

func (s *EntityStore) Table() string {
	if s == nil {
		return ""
	}
	return s.table
}

func (s *EntityStore) IDColumn() string {
	if s == nil {
		return ""
	}
	return s.idColumn
}

func (s *EntityStore) Get(ctx context.Context, id any) (map[string]any, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: entity store is not configured")
	}
	row := map[string]any{}
	err := s.db.NewSelect().
		TableExpr("?", bun.Ident(s.table)).
		Where("? = ?", bun.Ident(s.idColumn), id).
		Limit(1).
		Scan(ctx, &row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEntityNotFound
		}
		return nil, err
	}
	if len(row) == 0 {
		return nil, ErrEntityNotFound
	}
	return row, nil
}

func (s *EntityStore) List(ctx context.Context, opts ListOptions) ([]map[string]any, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: entity store is not configured")
	}
	rows := make([]map[string]any, 0)
	query := s.db.NewSelect().TableExpr("?", bun.Ident(s.table))
	for _, column := range sortedColumns(opts.Where) {
		query = query.Where("? = ?", bun.Ident(column), opts.Where[column])
	}
	if orderBy := strings.TrimSpace(opts.OrderBy); orderBy != "" {
		direction := "ASC"
		if opts.Desc {
			direction = "DESC"
		}
		query = query.OrderExpr("? "+direction, bun.Ident(orderBy))
	}
	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}
	if err := query.Scan(ctx, &rows); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []map[string]any{}, nil
		}
		return nil, err
	}
	return rows, nil
}

// Insert writes values and returns the row id: the supplied one when
// present, otherwise the one generated by the database.
func (s *EntityStore) Insert(ctx context.Context, values map[string]any) (any, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("sqlstore: entity store is not configured")
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("sqlstore: insert into %s requires values", s.table)
	}
	row := copyValues(values)
	query := s.db.NewInsert().Model(&row).TableExpr("?", bun.Ident(s.table))

	if id, ok := row[s.idColumn]; ok && id != nil {
		if _, err := query.Exec(ctx); err != nil {
			return nil, err
		}
		return id, nil
	}

	if s.db.Dialect().Name() == dialect.PG {
		var id any
		if err := query.Returning("?", bun.Ident(s.idColumn)).Scan(ctx, &id); err != nil {
			return nil, err
		}
		return id, nil
	}

	result, err := query.Exec(ctx)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("sqlstore: resolve generated id for %s: %w", s.table, err)
	}
	return id, nil
}

func (s *EntityStore) Update(ctx context.Context, id any, values map[string]any) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: entity store is not configured")
	}
	row := copyValues(values)
	delete(row, s.idColumn)
	if len(row) == 0 {
		return nil
	}
	result, err := s.db.NewUpdate().
		Model(&row).
		TableExpr("?", bun.Ident(s.table)).
		Where("? = ?", bun.Ident(s.idColumn), id).
		Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func (s *EntityStore) Delete(ctx context.Context, id any) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("sqlstore: entity store is not configured")
	}
	result, err := s.db.NewRaw(
		"DELETE FROM ? WHERE ? = ?",
		bun.Ident(s.table),
		bun.Ident(s.idColumn),
		id,
	).Exec(ctx)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		// driver does not report row counts
		return nil
	}
	if affected == 0 {
		return ErrEntityNotFound
	}
	return nil
}

func sortedColumns(values map[string]any) []string {
	columns := make([]string, 0, len(values))
	for column := range values {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

func copyValues(values map[string]any) map[string]any {
	out := make(map[string]any, len(values))
	for key, value := range values {
		out[key] = value
	}
	return out
}
