package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"qroute/internal/model"
)

// Store persists generated paths.
type Store interface {
	// SavePath stores rec, assigning ID and CreatedAt when unset.
	SavePath(ctx context.Context, rec model.PathRecord) (model.PathRecord, error)
	GetPath(ctx context.Context, id string) (model.PathRecord, error)
	// ListPaths pages through records newest first. The cursor is the last
	// ID of the previous page; an empty next cursor ends the listing.
	ListPaths(ctx context.Context, cursor string, limit int) ([]model.PathRecord, string, error)
	Ping(ctx context.Context) error
	Close() error
}

var ErrNotFound = errors.New("not found")

const (
	defaultLimit = 100
	maxLimit     = 500
)

func pageLimit(limit int) int {
	if limit <= 0 || limit > maxLimit {
		return defaultLimit
	}
	return limit
}

func prepare(rec model.PathRecord) model.PathRecord {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	return rec
}

func nextCursor(items []model.PathRecord, limit int) string {
	if len(items) < limit || len(items) == 0 {
		return ""
	}
	return items[len(items)-1].ID
}
