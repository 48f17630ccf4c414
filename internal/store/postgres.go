package store

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
)

type Postgres struct {
	db  *sql.DB
	dsn string
}

func NewPostgres(dsn string) (*Postgres, error) {
	d, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	p := &Postgres{db: d, dsn: dsn}
	if err := p.Init(); err != nil {
		d.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) Init() error {
	// rely on migrations to create tables; just verify connectivity
	return p.db.Ping()
}

func (p *Postgres) Get(ctx context.Context, key string) (string, error) {
	row := p.db.QueryRowContext(ctx, `SELECT value FROM kv_store WHERE key = $1`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return v, nil
}

func (p *Postgres) Set(ctx context.Context, key, value string) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO kv_store(key,value,updated_at) VALUES($1,$2,now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`, key, value)
	return err
}

func (p *Postgres) Remove(ctx context.Context, key string) error {
	_, err := p.db.ExecContext(ctx, `DELETE FROM kv_store WHERE key = $1`, key)
	return err
}

func (p *Postgres) Close() error { return p.db.Close() }
func (p *Postgres) Ping(ctx context.Context) error {
	return p.db.PingContext(ctx)
}
