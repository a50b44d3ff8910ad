// Package repository defines the storage contracts. Every read, update, and
// delete on an owned resource takes the owner identity as an explicit
// required parameter, never an ambient value, so a cross-tenant lookup is
// impossible to construct.
package repository

import (
	"context"
	"errors"

	"pokedex/internal/db"
)

var (
	// ErrNotFound is returned when a record does not exist under the given
	// owner. It is what callers surface; a resource owned by someone else
	// must be indistinguishable from one that does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrNotOwned means the record exists but under a different owner. It
	// unwraps to ErrNotFound so the distinction can only be used for audit,
	// never for the response.
	ErrNotOwned = errNotOwned{}
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("record already exists")
)

type errNotOwned struct{}

func (errNotOwned) Error() string { return "record owned by another identity" }
func (errNotOwned) Unwrap() error { return ErrNotFound }

type UserRepository interface {
	CreateUser(ctx context.Context, user *db.User) error
	GetUserByID(ctx context.Context, id string) (*db.User, error)
	GetUserByUsername(ctx context.Context, username string) (*db.User, error)
	// UpdatePasswordHash atomically replaces the stored hash.
	UpdatePasswordHash(ctx context.Context, id, hash string) error
	// SoftDeleteUser marks the user deleted without freeing the identity.
	SoftDeleteUser(ctx context.Context, id string) error
}

// EntryFilter narrows and orders collection listings.
type EntryFilter struct {
	Captured *bool
	Favorite *bool
	SortBy   string // "pokemon_id", "pokemon_name", "capture_date"
	Desc     bool
	Limit    int
	Offset   int
}

type PokedexRepository interface {
	CreateEntry(ctx context.Context, entry *db.PokedexEntry) error
	GetEntry(ctx context.Context, ownerID, entryID string) (*db.PokedexEntry, error)
	ListEntries(ctx context.Context, ownerID string, filter EntryFilter) ([]*db.PokedexEntry, error)
	UpdateEntry(ctx context.Context, ownerID string, entry *db.PokedexEntry) error
	DeleteEntry(ctx context.Context, ownerID, entryID string) error
}

type TeamRepository interface {
	CreateTeam(ctx context.Context, team *db.Team) error
	GetTeam(ctx context.Context, ownerID, teamID string) (*db.Team, error)
	ListTeams(ctx context.Context, ownerID string) ([]*db.Team, error)
	UpdateTeam(ctx context.Context, ownerID string, team *db.Team) error
	DeleteTeam(ctx context.Context, ownerID, teamID string) error
}

// Store bundles the repositories a fully wired server needs.
type Store interface {
	UserRepository
	PokedexRepository
	TeamRepository
}
