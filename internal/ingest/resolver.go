package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
)

// SportIDCache is an optional shared cache in front of the sport catalog
type SportIDCache interface {
	GetSportID(ctx context.Context, name string) (id int, found bool, err error)
	SetSportID(ctx context.Context, name string, id int) error
}

// SportResolver maps a sport name to its stored id. Lookups go memo, cache, catalog.
// A resolver is scoped to one run and is not safe for concurrent use.
type SportResolver struct {
	catalog SportCatalog
	cache   SportIDCache
	logger  *log.Logger

	memo map[string]sql.NullInt64
}

// NewSportResolver creates a resolver. cache may be nil.
func NewSportResolver(catalog SportCatalog, cache SportIDCache, logger *log.Logger) *SportResolver {
	if logger == nil {
		logger = log.New(log.Writer(), "[ingest] ", log.LstdFlags)
	}
	return &SportResolver{
		catalog: catalog,
		cache:   cache,
		logger:  logger,
		memo:    make(map[string]sql.NullInt64),
	}
}

// Resolve returns the sport id for name, or an invalid NullInt64 when no sport matches.
// Only catalog errors are returned; cache failures are logged and bypassed.
func (r *SportResolver) Resolve(ctx context.Context, name string) (sql.NullInt64, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return sql.NullInt64{}, nil
	}

	if id, ok := r.memo[name]; ok {
		return id, nil
	}

	if r.cache != nil {
		id, found, err := r.cache.GetSportID(ctx, name)
		if err != nil {
			r.logger.Printf("⚠️  sport cache read failed for %q: %v", name, err)
		} else if found {
			resolved := nullInt64(int64(id))
			r.memo[name] = resolved
			return resolved, nil
		}
	}

	id, found, err := r.catalog.SportIDByName(ctx, name)
	if err != nil {
		return sql.NullInt64{}, fmt.Errorf("resolving sport %q: %w", name, err)
	}

	if !found {
		r.memo[name] = sql.NullInt64{}
		return sql.NullInt64{}, nil
	}

	resolved := nullInt64(int64(id))
	r.memo[name] = resolved

	if r.cache != nil {
		if err := r.cache.SetSportID(ctx, name, id); err != nil {
			r.logger.Printf("⚠️  sport cache write failed for %q: %v", name, err)
		}
	}

	return resolved, nil
}
