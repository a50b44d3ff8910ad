package service

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokedex/internal/repository"
)

func newTeamFixture(t *testing.T) (*TeamService, *PokedexService) {
	t.Helper()
	pokedexSvc, repo := newPokedexService()
	teamSvc := NewTeamService(repo, repo)

	ctx := context.Background()
	for _, id := range []int{25, 143} {
		_, err := pokedexSvc.AddEntry(ctx, "owner-a", id, "", true)
		require.NoError(t, err)
	}
	return teamSvc, pokedexSvc
}

func TestTeamService_CreateTeam(t *testing.T) {
	t.Parallel()

	svc, _ := newTeamFixture(t)
	ctx := context.Background()

	team, err := svc.CreateTeam(ctx, "owner-a", "starters", "first squad", []int{25, 143})
	require.NoError(t, err)
	assert.Equal(t, "owner-a", team.OwnerID)
	assert.Equal(t, []int{25, 143}, team.PokemonIDs)

	// Roster members must come from the owner's own collection.
	_, err = svc.CreateTeam(ctx, "owner-a", "cheaters", "", []int{1})
	assert.ErrorIs(t, err, ErrPokemonNotOwned)
	_, err = svc.CreateTeam(ctx, "owner-b", "theirs", "", []int{25})
	assert.ErrorIs(t, err, ErrPokemonNotOwned)

	_, err = svc.CreateTeam(ctx, "owner-a", "", "", nil)
	assert.Error(t, err)
}

func TestTeamService_RosterCap(t *testing.T) {
	t.Parallel()

	pokedexSvc, repo := newPokedexService()
	svc := NewTeamService(repo, repo)
	ctx := context.Background()

	catalog := []int{25, 143, 1}
	for _, id := range catalog {
		_, err := pokedexSvc.AddEntry(ctx, "owner-a", id, "", true)
		require.NoError(t, err)
	}

	_, err := svc.CreateTeam(ctx, "owner-a", "too-big", "", []int{25, 143, 1, 25, 143, 1, 25})
	assert.ErrorIs(t, err, ErrTeamTooLarge)
}

func TestTeamService_OwnershipIsInvisible(t *testing.T) {
	t.Parallel()

	svc, _ := newTeamFixture(t)
	ctx := context.Background()

	team, err := svc.CreateTeam(ctx, "owner-a", "starters", "", []int{25})
	require.NoError(t, err)

	_, err = svc.GetTeam(ctx, "owner-b", team.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	name := "stolen"
	_, err = svc.UpdateTeam(ctx, "owner-b", team.ID, TeamUpdate{Name: &name})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = svc.DeleteTeam(ctx, "owner-b", team.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	got, err := svc.GetTeam(ctx, "owner-a", team.ID)
	require.NoError(t, err)
	assert.Equal(t, "starters", got.Name)
}

func TestTeamService_UpdateTeam(t *testing.T) {
	t.Parallel()

	svc, _ := newTeamFixture(t)
	ctx := context.Background()

	team, err := svc.CreateTeam(ctx, "owner-a", "starters", "", []int{25})
	require.NoError(t, err)

	name := "champions"
	roster := []int{25, 143}
	updated, err := svc.UpdateTeam(ctx, "owner-a", team.ID, TeamUpdate{Name: &name, PokemonIDs: &roster})
	require.NoError(t, err)
	assert.Equal(t, "champions", updated.Name)
	assert.Equal(t, []int{25, 143}, updated.PokemonIDs)

	// A roster pointing outside the collection is rejected whole.
	bad := []int{25, 7}
	_, err = svc.UpdateTeam(ctx, "owner-a", team.ID, TeamUpdate{PokemonIDs: &bad})
	assert.ErrorIs(t, err, ErrPokemonNotOwned)
}

func TestTeamService_ExportCSV(t *testing.T) {
	t.Parallel()

	svc, _ := newTeamFixture(t)
	ctx := context.Background()

	team, err := svc.CreateTeam(ctx, "owner-a", "starters", "", []int{25, 143})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, "owner-a", team.ID, &buf))

	out := buf.String()
	assert.Contains(t, out, "team,pokemon_id,pokemon_name,nickname,is_captured")
	assert.Contains(t, out, "starters,25,pikachu,,true")
	assert.Contains(t, out, "starters,143,snorlax,,true")

	assert.ErrorIs(t, svc.ExportCSV(ctx, "owner-b", team.ID, &buf), repository.ErrNotFound)
}
