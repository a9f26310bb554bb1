//go:build postgres_integration

package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qroute/internal/model"
)

func TestPostgresConnectivityAndMigrate(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	ctx := context.Background()
	p, err := NewPostgres(dsn)
	require.NoError(t, err)
	defer p.Close()
	require.NoError(t, p.Ping(ctx))
	require.NoError(t, p.Migrate(ctx))

	rec, err := p.SavePath(ctx, model.PathRecord{Hops: 3, Status: "optimal", Oracle: "exact",
		Path: []model.GeoPoint{{Lat: 40.7, Lng: -74}, {Lat: 40.72, Lng: -74}}})
	require.NoError(t, err)
	got, err := p.GetPath(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.Path, got.Path)

	page, _, err := p.ListPaths(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, page, 1)
}
