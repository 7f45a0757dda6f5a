package widget

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second
)

// PostgresStore expects a provisioned table:
//
//	CREATE TABLE widgets (
//	    seq         BIGSERIAL,
//	    name        TEXT PRIMARY KEY,
//	    description TEXT,
//	    price       DOUBLE PRECISION
//	);
//
// seq orders the listing so an upserted row moves to the end, matching MemStore.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres opens a pgx-backed *sql.DB and verifies connectivity.
func OpenPostgres(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := withTimeout(ctx, pingTimeout, db.PingContext); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, s.db.PingContext)
}

func (s *PostgresStore) Len(ctx context.Context) (int, error) {
	var n int
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		return s.db.QueryRowContext(ctx, `SELECT count(*) FROM widgets`).Scan(&n)
	})
	return n, err
}

func (s *PostgresStore) List(ctx context.Context) ([]Widget, error) {
	var out []Widget
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		out, err = listWidgets(ctx, s.db)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) FindByName(ctx context.Context, name string) (Widget, bool, error) {
	var w Widget
	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		w, err = scanWidget(s.db.QueryRowContext(ctx, `
			SELECT name, description, price
			FROM widgets
			WHERE name = $1
		`, name))
		return err
	})

	if errors.Is(err, sql.ErrNoRows) {
		return Widget{}, false, nil
	}
	if err != nil {
		return Widget{}, false, err
	}
	return w, true, nil
}

func (s *PostgresStore) Upsert(ctx context.Context, w Widget) (Widget, error) {
	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		return upsertTx(ctx, tx, w)
	})
	if err != nil {
		return Widget{}, err
	}
	return w, nil
}

func (s *PostgresStore) UpsertAll(ctx context.Context, ws []Widget) ([]Widget, error) {
	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		for _, w := range ws {
			if err := upsertTx(ctx, tx, w); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ws, nil
}

func (s *PostgresStore) DeleteByName(ctx context.Context, name string) ([]Widget, bool, error) {
	var (
		remaining []Widget
		removed   bool
	)
	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM widgets WHERE name = $1`, name)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		removed = n > 0

		remaining, err = listWidgets(ctx, tx)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return remaining, removed, nil
}

func (s *PostgresStore) Update(ctx context.Context, name string, p Patch) (Widget, bool, error) {
	var (
		w     Widget
		found bool
	)
	err := s.inTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		w, err = scanWidget(tx.QueryRowContext(ctx, `
			SELECT name, description, price
			FROM widgets
			WHERE name = $1
			FOR UPDATE
		`, name))
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true

		if !p.Apply(&w) {
			return nil
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE widgets
			SET description = $2, price = $3
			WHERE name = $1
		`, w.Name, w.Description, w.Price)
		return err
	})
	if err != nil {
		return Widget{}, false, err
	}
	if !found {
		return Widget{}, false, nil
	}
	return w, true, nil
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(ctx context.Context, tx *sql.Tx) error) error {
	return withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if err := fn(ctx, tx); err != nil {
			return err
		}
		return tx.Commit()
	})
}

func upsertTx(ctx context.Context, tx *sql.Tx, w Widget) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM widgets WHERE name = $1`, w.Name); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO widgets (name, description, price)
		VALUES ($1, $2, $3)
	`, w.Name, w.Description, w.Price)
	return err
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func listWidgets(ctx context.Context, q queryer) ([]Widget, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT name, description, price
		FROM widgets
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]Widget, 0, 16)
	for rows.Next() {
		w, err := scanWidget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanWidget(sc scanner) (Widget, error) {
	var (
		w     Widget
		desc  sql.NullString
		price sql.NullFloat64
	)
	if err := sc.Scan(&w.Name, &desc, &price); err != nil {
		return Widget{}, err
	}
	if desc.Valid {
		w.Description = &desc.String
	}
	if price.Valid {
		w.Price = &price.Float64
	}
	return w, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
