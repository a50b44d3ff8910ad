// Package postgres implements the repositories on PostgreSQL. Ownership is
// enforced in the same two-step shape as the memory store: fetch by id,
// then compare owners, so a foreign record surfaces as not-owned for the
// audit trail while callers still see not-found.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"pokedex/internal/db"
	"pokedex/internal/repository"
)

type DB struct {
	sql *sql.DB
}

// Open connects, pings, and runs migrations.
func Open(connStr string) (*DB, error) {
	s, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	s.SetMaxOpenConns(10)
	s.SetMaxIdleConns(5)
	s.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.PingContext(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}

	d := &DB{sql: s}
	if err := d.migrate(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return d, nil
}

func (d *DB) Close() error {
	return d.sql.Close()
}

func (d *DB) migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			username TEXT UNIQUE NOT NULL,
			email TEXT NOT NULL DEFAULT '',
			password_hash TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL,
			deleted_at TIMESTAMPTZ
		);`,
		`CREATE TABLE IF NOT EXISTS pokedex_entries (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL REFERENCES users(id),
			pokemon_id INTEGER NOT NULL,
			pokemon_name TEXT NOT NULL,
			pokemon_sprite TEXT NOT NULL DEFAULT '',
			nickname TEXT NOT NULL DEFAULT '',
			is_captured BOOLEAN NOT NULL DEFAULT FALSE,
			capture_date TIMESTAMPTZ,
			favorite BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_pokedex_entries_owner ON pokedex_entries(owner_id);`,
		`CREATE TABLE IF NOT EXISTS teams (
			id TEXT PRIMARY KEY,
			owner_id TEXT NOT NULL REFERENCES users(id),
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			pokemon_ids INTEGER[] NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_teams_owner ON teams(owner_id);`,
	}

	for _, stmt := range stmts {
		if _, err := d.sql.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Users

func (d *DB) CreateUser(ctx context.Context, user *db.User) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO users (id, username, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.CreatedAt,
	)
	if isUniqueViolation(err) {
		return repository.ErrDuplicate
	}
	return err
}

func (d *DB) GetUserByID(ctx context.Context, id string) (*db.User, error) {
	return d.getUser(ctx, `SELECT id, username, email, password_hash, created_at, deleted_at FROM users WHERE id = $1 AND deleted_at IS NULL`, id)
}

func (d *DB) GetUserByUsername(ctx context.Context, username string) (*db.User, error) {
	return d.getUser(ctx, `SELECT id, username, email, password_hash, created_at, deleted_at FROM users WHERE username = $1 AND deleted_at IS NULL`, username)
}

func (d *DB) getUser(ctx context.Context, query string, arg interface{}) (*db.User, error) {
	var u db.User
	err := d.sql.QueryRowContext(ctx, query, arg).
		Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.DeletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (d *DB) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE users SET password_hash = $2 WHERE id = $1 AND deleted_at IS NULL`, id, hash)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (d *DB) SoftDeleteUser(ctx context.Context, id string) error {
	res, err := d.sql.ExecContext(ctx,
		`UPDATE users SET deleted_at = $2 WHERE id = $1 AND deleted_at IS NULL`, id, time.Now())
	if err != nil {
		return err
	}
	return requireRow(res)
}

// Pokedex entries

func (d *DB) CreateEntry(ctx context.Context, entry *db.PokedexEntry) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO pokedex_entries (id, owner_id, pokemon_id, pokemon_name, pokemon_sprite, nickname, is_captured, capture_date, favorite, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		entry.ID, entry.OwnerID, entry.PokemonID, entry.PokemonName, entry.PokemonSprite,
		entry.Nickname, entry.Captured, entry.CaptureDate, entry.Favorite, entry.CreatedAt,
	)
	return err
}

func (d *DB) GetEntry(ctx context.Context, ownerID, entryID string) (*db.PokedexEntry, error) {
	var e db.PokedexEntry
	err := d.sql.QueryRowContext(ctx,
		`SELECT id, owner_id, pokemon_id, pokemon_name, pokemon_sprite, nickname, is_captured, capture_date, favorite, created_at
		 FROM pokedex_entries WHERE id = $1`, entryID).
		Scan(&e.ID, &e.OwnerID, &e.PokemonID, &e.PokemonName, &e.PokemonSprite,
			&e.Nickname, &e.Captured, &e.CaptureDate, &e.Favorite, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if e.OwnerID != ownerID {
		return nil, repository.ErrNotOwned
	}
	return &e, nil
}

var entrySortColumns = map[string]string{
	"":             "pokemon_id",
	"pokemon_id":   "pokemon_id",
	"pokemon_name": "pokemon_name",
	"capture_date": "capture_date",
}

func (d *DB) ListEntries(ctx context.Context, ownerID string, filter repository.EntryFilter) ([]*db.PokedexEntry, error) {
	query := `SELECT id, owner_id, pokemon_id, pokemon_name, pokemon_sprite, nickname, is_captured, capture_date, favorite, created_at
		 FROM pokedex_entries WHERE owner_id = $1`
	args := []interface{}{ownerID}

	if filter.Captured != nil {
		args = append(args, *filter.Captured)
		query += fmt.Sprintf(" AND is_captured = $%d", len(args))
	}
	if filter.Favorite != nil {
		args = append(args, *filter.Favorite)
		query += fmt.Sprintf(" AND favorite = $%d", len(args))
	}

	column, ok := entrySortColumns[filter.SortBy]
	if !ok {
		column = "pokemon_id"
	}
	query += " ORDER BY " + column
	if filter.Desc {
		query += " DESC"
	}

	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := d.sql.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*db.PokedexEntry
	for rows.Next() {
		var e db.PokedexEntry
		if err := rows.Scan(&e.ID, &e.OwnerID, &e.PokemonID, &e.PokemonName, &e.PokemonSprite,
			&e.Nickname, &e.Captured, &e.CaptureDate, &e.Favorite, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}

func (d *DB) UpdateEntry(ctx context.Context, ownerID string, entry *db.PokedexEntry) error {
	if _, err := d.GetEntry(ctx, ownerID, entry.ID); err != nil {
		return err
	}
	_, err := d.sql.ExecContext(ctx,
		`UPDATE pokedex_entries SET nickname = $3, is_captured = $4, capture_date = $5, favorite = $6
		 WHERE id = $1 AND owner_id = $2`,
		entry.ID, ownerID, entry.Nickname, entry.Captured, entry.CaptureDate, entry.Favorite,
	)
	return err
}

func (d *DB) DeleteEntry(ctx context.Context, ownerID, entryID string) error {
	if _, err := d.GetEntry(ctx, ownerID, entryID); err != nil {
		return err
	}
	_, err := d.sql.ExecContext(ctx,
		`DELETE FROM pokedex_entries WHERE id = $1 AND owner_id = $2`, entryID, ownerID)
	return err
}

// Teams

func (d *DB) CreateTeam(ctx context.Context, team *db.Team) error {
	_, err := d.sql.ExecContext(ctx,
		`INSERT INTO teams (id, owner_id, name, description, pokemon_ids, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		team.ID, team.OwnerID, team.Name, team.Description, pq.Array(toInt64(team.PokemonIDs)), team.CreatedAt,
	)
	return err
}

func (d *DB) GetTeam(ctx context.Context, ownerID, teamID string) (*db.Team, error) {
	var t db.Team
	var ids pq.Int64Array
	err := d.sql.QueryRowContext(ctx,
		`SELECT id, owner_id, name, description, pokemon_ids, created_at FROM teams WHERE id = $1`, teamID).
		Scan(&t.ID, &t.OwnerID, &t.Name, &t.Description, &ids, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if t.OwnerID != ownerID {
		return nil, repository.ErrNotOwned
	}
	t.PokemonIDs = toInt(ids)
	return &t, nil
}

func (d *DB) ListTeams(ctx context.Context, ownerID string) ([]*db.Team, error) {
	rows, err := d.sql.QueryContext(ctx,
		`SELECT id, owner_id, name, description, pokemon_ids, created_at FROM teams WHERE owner_id = $1 ORDER BY created_at`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*db.Team
	for rows.Next() {
		var t db.Team
		var ids pq.Int64Array
		if err := rows.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Description, &ids, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.PokemonIDs = toInt(ids)
		out = append(out, &t)
	}
	return out, rows.Err()
}

func (d *DB) UpdateTeam(ctx context.Context, ownerID string, team *db.Team) error {
	if _, err := d.GetTeam(ctx, ownerID, team.ID); err != nil {
		return err
	}
	_, err := d.sql.ExecContext(ctx,
		`UPDATE teams SET name = $3, description = $4, pokemon_ids = $5 WHERE id = $1 AND owner_id = $2`,
		team.ID, ownerID, team.Name, team.Description, pq.Array(toInt64(team.PokemonIDs)),
	)
	return err
}

func (d *DB) DeleteTeam(ctx context.Context, ownerID, teamID string) error {
	if _, err := d.GetTeam(ctx, ownerID, teamID); err != nil {
		return err
	}
	_, err := d.sql.ExecContext(ctx,
		`DELETE FROM teams WHERE id = $1 AND owner_id = $2`, teamID, ownerID)
	return err
}

// helpers

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func toInt64(ids []int) []int64 {
	out := make([]int64, len(ids))
	for i, v := range ids {
		out[i] = int64(v)
	}
	return out
}

func toInt(ids []int64) []int {
	out := make([]int, len(ids))
	for i, v := range ids {
		out[i] = int(v)
	}
	return out
}
