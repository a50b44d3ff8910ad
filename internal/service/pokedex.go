package service

import (
	"context"
	"encoding/csv"
	"errors"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"pokedex/internal/db"
	"pokedex/internal/pokeapi"
	"pokedex/internal/repository"
)

// Catalog is the slice of the upstream client the collection needs.
type Catalog interface {
	GetPokemon(ctx context.Context, idOrName string) (*pokeapi.Pokemon, error)
}

// ErrUnknownPokemon rejects an entry for a pokemon the catalog does not
// know.
var ErrUnknownPokemon = errors.New("unknown pokemon")

type PokedexService struct {
	entries repository.PokedexRepository
	catalog Catalog
}

func NewPokedexService(entries repository.PokedexRepository, catalog Catalog) *PokedexService {
	return &PokedexService{entries: entries, catalog: catalog}
}

// AddEntry resolves the pokemon against the catalog and records it under
// the requester's identity. The owner binding is set here, once, and never
// changes afterwards.
func (s *PokedexService) AddEntry(ctx context.Context, ownerID string, pokemonID int, nickname string, captured bool) (*db.PokedexEntry, error) {
	p, err := s.catalog.GetPokemon(ctx, strconv.Itoa(pokemonID))
	if err != nil {
		if errors.Is(err, pokeapi.ErrNotFound) {
			return nil, ErrUnknownPokemon
		}
		return nil, err
	}

	entry := &db.PokedexEntry{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		PokemonID:     p.ID,
		PokemonName:   p.Name,
		PokemonSprite: p.Sprites.FrontDefault,
		Nickname:      nickname,
		Captured:      captured,
		CreatedAt:     time.Now(),
	}
	if captured {
		now := time.Now()
		entry.CaptureDate = &now
	}

	if err := s.entries.CreateEntry(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *PokedexService) GetEntry(ctx context.Context, ownerID, entryID string) (*db.PokedexEntry, error) {
	return s.entries.GetEntry(ctx, ownerID, entryID)
}

func (s *PokedexService) ListEntries(ctx context.Context, ownerID string, filter repository.EntryFilter) ([]*db.PokedexEntry, error) {
	return s.entries.ListEntries(ctx, ownerID, filter)
}

// EntryUpdate carries the mutable fields of an entry. Nil means unchanged.
type EntryUpdate struct {
	Nickname *string
	Captured *bool
	Favorite *bool
}

// UpdateEntry patches an owned entry. Marking an entry captured stamps the
// capture date; un-capturing clears it.
func (s *PokedexService) UpdateEntry(ctx context.Context, ownerID, entryID string, update EntryUpdate) (*db.PokedexEntry, error) {
	entry, err := s.entries.GetEntry(ctx, ownerID, entryID)
	if err != nil {
		return nil, err
	}

	if update.Nickname != nil {
		entry.Nickname = *update.Nickname
	}
	if update.Captured != nil && *update.Captured != entry.Captured {
		entry.Captured = *update.Captured
		if entry.Captured {
			now := time.Now()
			entry.CaptureDate = &now
		} else {
			entry.CaptureDate = nil
		}
	}
	if update.Favorite != nil {
		entry.Favorite = *update.Favorite
	}

	if err := s.entries.UpdateEntry(ctx, ownerID, entry); err != nil {
		return nil, err
	}
	return entry, nil
}

func (s *PokedexService) DeleteEntry(ctx context.Context, ownerID, entryID string) error {
	return s.entries.DeleteEntry(ctx, ownerID, entryID)
}

// Stats summarizes one owner's collection.
type Stats struct {
	Total                int     `json:"total_pokemon"`
	Captured             int     `json:"captured"`
	Favorites            int     `json:"favorites"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

func (s *PokedexService) Stats(ctx context.Context, ownerID string) (*Stats, error) {
	entries, err := s.entries.ListEntries(ctx, ownerID, repository.EntryFilter{})
	if err != nil {
		return nil, err
	}

	stats := &Stats{Total: len(entries)}
	for _, e := range entries {
		if e.Captured {
			stats.Captured++
		}
		if e.Favorite {
			stats.Favorites++
		}
	}
	if stats.Total > 0 {
		stats.CompletionPercentage = float64(stats.Captured) / float64(stats.Total) * 100
	}
	return stats, nil
}

// ExportCSV streams the owner's collection as CSV.
func (s *PokedexService) ExportCSV(ctx context.Context, ownerID string, filter repository.EntryFilter, w io.Writer) error {
	entries, err := s.entries.ListEntries(ctx, ownerID, filter)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"pokemon_id", "pokemon_name", "nickname", "is_captured", "favorite"}); err != nil {
		return err
	}
	for _, e := range entries {
		record := []string{
			strconv.Itoa(e.PokemonID),
			e.PokemonName,
			e.Nickname,
			strconv.FormatBool(e.Captured),
			strconv.FormatBool(e.Favorite),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
