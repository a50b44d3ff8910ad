// Package memory is the in-process store implementation. It backs tests and
// standalone mode; the postgres package provides the durable variant behind
// the same interfaces.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"pokedex/internal/db"
	"pokedex/internal/repository"
)

type Repository struct {
	mu      sync.RWMutex
	users   map[string]*db.User         // id -> user
	entries map[string]*db.PokedexEntry // id -> entry
	teams   map[string]*db.Team         // id -> team
}

func New() *Repository {
	return &Repository{
		users:   make(map[string]*db.User),
		entries: make(map[string]*db.PokedexEntry),
		teams:   make(map[string]*db.Team),
	}
}

// Users

func (r *Repository) CreateUser(ctx context.Context, user *db.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if u.Username == user.Username || (user.Email != "" && u.Email == user.Email) {
			return repository.ErrDuplicate
		}
	}
	cp := *user
	r.users[user.ID] = &cp
	return nil
}

func (r *Repository) GetUserByID(ctx context.Context, id string) (*db.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*db.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if u.Username == username && u.DeletedAt == nil {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *Repository) UpdatePasswordHash(ctx context.Context, id, hash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	return nil
}

func (r *Repository) SoftDeleteUser(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.DeletedAt != nil {
		return repository.ErrNotFound
	}
	now := time.Now()
	u.DeletedAt = &now
	return nil
}

// Pokedex entries

func (r *Repository) CreateEntry(ctx context.Context, entry *db.PokedexEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *entry
	r.entries[entry.ID] = &cp
	return nil
}

func (r *Repository) GetEntry(ctx context.Context, ownerID, entryID string) (*db.PokedexEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getOwnedEntry(ownerID, entryID)
}

// getOwnedEntry must be called with the lock held.
func (r *Repository) getOwnedEntry(ownerID, entryID string) (*db.PokedexEntry, error) {
	e, ok := r.entries[entryID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if e.OwnerID != ownerID {
		return nil, repository.ErrNotOwned
	}
	cp := *e
	return &cp, nil
}

func (r *Repository) ListEntries(ctx context.Context, ownerID string, filter repository.EntryFilter) ([]*db.PokedexEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*db.PokedexEntry
	for _, e := range r.entries {
		if e.OwnerID != ownerID {
			continue
		}
		if filter.Captured != nil && e.Captured != *filter.Captured {
			continue
		}
		if filter.Favorite != nil && e.Favorite != *filter.Favorite {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}

	sortEntries(out, filter.SortBy, filter.Desc)

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func sortEntries(entries []*db.PokedexEntry, sortBy string, desc bool) {
	less := func(a, b *db.PokedexEntry) bool { return a.PokemonID < b.PokemonID }
	switch sortBy {
	case "pokemon_name":
		less = func(a, b *db.PokedexEntry) bool {
			return strings.ToLower(a.PokemonName) < strings.ToLower(b.PokemonName)
		}
	case "capture_date":
		less = func(a, b *db.PokedexEntry) bool {
			switch {
			case a.CaptureDate == nil:
				return b.CaptureDate != nil
			case b.CaptureDate == nil:
				return false
			default:
				return a.CaptureDate.Before(*b.CaptureDate)
			}
		}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		if desc {
			return less(entries[j], entries[i])
		}
		return less(entries[i], entries[j])
	})
}

func (r *Repository) UpdateEntry(ctx context.Context, ownerID string, entry *db.PokedexEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.getOwnedEntry(ownerID, entry.ID); err != nil {
		return err
	}
	cp := *entry
	cp.OwnerID = ownerID // owner is immutable
	r.entries[entry.ID] = &cp
	return nil
}

func (r *Repository) DeleteEntry(ctx context.Context, ownerID, entryID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.getOwnedEntry(ownerID, entryID); err != nil {
		return err
	}
	delete(r.entries, entryID)
	return nil
}

// Teams

func (r *Repository) CreateTeam(ctx context.Context, team *db.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *team
	cp.PokemonIDs = append([]int(nil), team.PokemonIDs...)
	r.teams[team.ID] = &cp
	return nil
}

func (r *Repository) GetTeam(ctx context.Context, ownerID, teamID string) (*db.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.getOwnedTeam(ownerID, teamID)
}

// getOwnedTeam must be called with the lock held.
func (r *Repository) getOwnedTeam(ownerID, teamID string) (*db.Team, error) {
	t, ok := r.teams[teamID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if t.OwnerID != ownerID {
		return nil, repository.ErrNotOwned
	}
	cp := *t
	cp.PokemonIDs = append([]int(nil), t.PokemonIDs...)
	return &cp, nil
}

func (r *Repository) ListTeams(ctx context.Context, ownerID string) ([]*db.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*db.Team
	for _, t := range r.teams {
		if t.OwnerID != ownerID {
			continue
		}
		cp := *t
		cp.PokemonIDs = append([]int(nil), t.PokemonIDs...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *Repository) UpdateTeam(ctx context.Context, ownerID string, team *db.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.getOwnedTeam(ownerID, team.ID); err != nil {
		return err
	}
	cp := *team
	cp.OwnerID = ownerID
	cp.PokemonIDs = append([]int(nil), team.PokemonIDs...)
	r.teams[team.ID] = &cp
	return nil
}

func (r *Repository) DeleteTeam(ctx context.Context, ownerID, teamID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, err := r.getOwnedTeam(ownerID, teamID); err != nil {
		return err
	}
	delete(r.teams, teamID)
	return nil
}
