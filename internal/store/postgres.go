package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"qroute/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Postgres{db: db}, nil
}

// Migrate applies the embedded schema files in name order. They are
// idempotent.
func (p *Postgres) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return err
	}
	sort.Strings(names)
	for _, name := range names {
		b, err := migrations.ReadFile(name)
		if err != nil {
			return err
		}
		if _, err := p.db.ExecContext(ctx, string(b)); err != nil {
			return fmt.Errorf("migrate %s: %w", name, err)
		}
	}
	return nil
}

func (p *Postgres) SavePath(ctx context.Context, rec model.PathRecord) (model.PathRecord, error) {
	rec = prepare(rec)
	if _, err := uuid.Parse(rec.ID); err != nil {
		return rec, fmt.Errorf("path id %q is not a uuid", rec.ID)
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return rec, err
	}
	_, err = p.db.ExecContext(ctx, `INSERT INTO paths (id, created_at, start_lat, start_lng, end_lat, end_lng, hops, status, degraded, oracle, objective, record)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        ON CONFLICT (id) DO UPDATE SET status=EXCLUDED.status, degraded=EXCLUDED.degraded, objective=EXCLUDED.objective, record=EXCLUDED.record`,
		rec.ID, rec.CreatedAt, rec.Start.Lat, rec.Start.Lng, rec.End.Lat, rec.End.Lng,
		rec.Hops, rec.Status, rec.Degraded, rec.Oracle, finiteOrNil(rec.Objective), body)
	if err != nil {
		return rec, err
	}
	return rec, nil
}

func (p *Postgres) GetPath(ctx context.Context, id string) (model.PathRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return model.PathRecord{}, ErrNotFound
	}
	var body []byte
	err := p.db.QueryRowContext(ctx, `SELECT record FROM paths WHERE id=$1`, id).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PathRecord{}, ErrNotFound
	}
	if err != nil {
		return model.PathRecord{}, err
	}
	var rec model.PathRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return model.PathRecord{}, err
	}
	return rec, nil
}

func (p *Postgres) ListPaths(ctx context.Context, cursor string, limit int) ([]model.PathRecord, string, error) {
	limit = pageLimit(limit)
	var rows *sql.Rows
	var err error
	if cursor != "" {
		if _, perr := uuid.Parse(cursor); perr != nil {
			return nil, "", fmt.Errorf("invalid cursor %q", cursor)
		}
		rows, err = p.db.QueryContext(ctx, `SELECT record FROM paths
            WHERE (created_at, id) < (SELECT created_at, id FROM paths WHERE id=$1)
            ORDER BY created_at DESC, id DESC LIMIT $2`, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT record FROM paths ORDER BY created_at DESC, id DESC LIMIT $1`, limit)
	}
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()
	out := []model.PathRecord{}
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, "", err
		}
		var rec model.PathRecord
		if err := json.Unmarshal(body, &rec); err != nil {
			return nil, "", err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}
	return out, nextCursor(out, limit), nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

func finiteOrNil(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}
