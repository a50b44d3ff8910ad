package service

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/google/uuid"

	"pokedex/internal/db"
	"pokedex/internal/repository"
)

var (
	// ErrTeamTooLarge rejects rosters past the cap.
	ErrTeamTooLarge = fmt.Errorf("a team cannot have more than %d pokemon", db.MaxTeamSize)
	// ErrPokemonNotOwned rejects roster members absent from the owner's
	// collection.
	ErrPokemonNotOwned = errors.New("pokemon is not in your pokedex")
)

type TeamService struct {
	teams   repository.TeamRepository
	entries repository.PokedexRepository
}

func NewTeamService(teams repository.TeamRepository, entries repository.PokedexRepository) *TeamService {
	return &TeamService{teams: teams, entries: entries}
}

// CreateTeam records a roster under the requester's identity. Every member
// must already exist in that same identity's collection, so a team can
// never reference another tenant's entries.
func (s *TeamService) CreateTeam(ctx context.Context, ownerID, name, description string, pokemonIDs []int) (*db.Team, error) {
	if name == "" {
		return nil, errors.New("team name is required")
	}
	if err := s.validateRoster(ctx, ownerID, pokemonIDs); err != nil {
		return nil, err
	}

	team := &db.Team{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Name:        name,
		Description: description,
		PokemonIDs:  pokemonIDs,
		CreatedAt:   time.Now(),
	}
	if err := s.teams.CreateTeam(ctx, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *TeamService) GetTeam(ctx context.Context, ownerID, teamID string) (*db.Team, error) {
	return s.teams.GetTeam(ctx, ownerID, teamID)
}

func (s *TeamService) ListTeams(ctx context.Context, ownerID string) ([]*db.Team, error) {
	return s.teams.ListTeams(ctx, ownerID)
}

// TeamUpdate carries the mutable fields of a team. Nil means unchanged.
type TeamUpdate struct {
	Name        *string
	Description *string
	PokemonIDs  *[]int
}

func (s *TeamService) UpdateTeam(ctx context.Context, ownerID, teamID string, update TeamUpdate) (*db.Team, error) {
	team, err := s.teams.GetTeam(ctx, ownerID, teamID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil && *update.Name != "" {
		team.Name = *update.Name
	}
	if update.Description != nil {
		team.Description = *update.Description
	}
	if update.PokemonIDs != nil {
		if err := s.validateRoster(ctx, ownerID, *update.PokemonIDs); err != nil {
			return nil, err
		}
		team.PokemonIDs = *update.PokemonIDs
	}

	if err := s.teams.UpdateTeam(ctx, ownerID, team); err != nil {
		return nil, err
	}
	return team, nil
}

func (s *TeamService) DeleteTeam(ctx context.Context, ownerID, teamID string) error {
	return s.teams.DeleteTeam(ctx, ownerID, teamID)
}

func (s *TeamService) validateRoster(ctx context.Context, ownerID string, pokemonIDs []int) error {
	if len(pokemonIDs) > db.MaxTeamSize {
		return ErrTeamTooLarge
	}

	entries, err := s.entries.ListEntries(ctx, ownerID, repository.EntryFilter{})
	if err != nil {
		return err
	}
	owned := make(map[int]bool, len(entries))
	for _, e := range entries {
		owned[e.PokemonID] = true
	}

	for _, id := range pokemonIDs {
		if !owned[id] {
			return fmt.Errorf("%w: %d", ErrPokemonNotOwned, id)
		}
	}
	return nil
}

// ExportCSV streams the team roster, resolved against the owner's
// collection, as CSV.
func (s *TeamService) ExportCSV(ctx context.Context, ownerID, teamID string, w io.Writer) error {
	team, err := s.teams.GetTeam(ctx, ownerID, teamID)
	if err != nil {
		return err
	}

	entries, err := s.entries.ListEntries(ctx, ownerID, repository.EntryFilter{})
	if err != nil {
		return err
	}
	byPokemonID := make(map[int]*db.PokedexEntry, len(entries))
	for _, e := range entries {
		byPokemonID[e.PokemonID] = e
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"team", "pokemon_id", "pokemon_name", "nickname", "is_captured"}); err != nil {
		return err
	}
	for _, id := range team.PokemonIDs {
		record := []string{team.Name, strconv.Itoa(id), "", "", "false"}
		if e, ok := byPokemonID[id]; ok {
			record[2] = e.PokemonName
			record[3] = e.Nickname
			record[4] = strconv.FormatBool(e.Captured)
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
