package service

import (
	"bytes"
	"context"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pokedex/internal/pokeapi"
	"pokedex/internal/repository"
	"pokedex/internal/repository/memory"
)

// stubCatalog resolves a fixed set of pokemon without the network.
type stubCatalog struct {
	known map[int]string
}

func (c *stubCatalog) GetPokemon(ctx context.Context, idOrName string) (*pokeapi.Pokemon, error) {
	id, err := strconv.Atoi(idOrName)
	if err != nil {
		return nil, pokeapi.ErrNotFound
	}
	name, ok := c.known[id]
	if !ok {
		return nil, pokeapi.ErrNotFound
	}
	p := &pokeapi.Pokemon{ID: id, Name: name}
	p.Sprites.FrontDefault = "https://img/" + idOrName + ".png"
	return p, nil
}

func newPokedexService() (*PokedexService, *memory.Repository) {
	repo := memory.New()
	catalog := &stubCatalog{known: map[int]string{
		25:  "pikachu",
		143: "snorlax",
		1:   "bulbasaur",
	}}
	return NewPokedexService(repo, catalog), repo
}

func TestPokedexService_AddEntry(t *testing.T) {
	t.Parallel()

	svc, _ := newPokedexService()
	ctx := context.Background()

	entry, err := svc.AddEntry(ctx, "owner-a", 25, "sparky", true)
	require.NoError(t, err)
	assert.Equal(t, "owner-a", entry.OwnerID)
	assert.Equal(t, "pikachu", entry.PokemonName)
	assert.Equal(t, "https://img/25.png", entry.PokemonSprite)
	assert.Equal(t, "sparky", entry.Nickname)
	assert.True(t, entry.Captured)
	require.NotNil(t, entry.CaptureDate)

	_, err = svc.AddEntry(ctx, "owner-a", 9999, "", false)
	assert.ErrorIs(t, err, ErrUnknownPokemon)
}

func TestPokedexService_OwnershipIsInvisible(t *testing.T) {
	t.Parallel()

	svc, _ := newPokedexService()
	ctx := context.Background()

	entry, err := svc.AddEntry(ctx, "owner-a", 25, "", false)
	require.NoError(t, err)

	// Another identity sees the entry exactly as if it did not exist.
	_, err = svc.GetEntry(ctx, "owner-b", entry.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	captured := true
	_, err = svc.UpdateEntry(ctx, "owner-b", entry.ID, EntryUpdate{Captured: &captured})
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = svc.DeleteEntry(ctx, "owner-b", entry.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	// The owner still has it, untouched.
	got, err := svc.GetEntry(ctx, "owner-a", entry.ID)
	require.NoError(t, err)
	assert.False(t, got.Captured)
}

func TestPokedexService_UpdateEntry_CaptureDate(t *testing.T) {
	t.Parallel()

	svc, _ := newPokedexService()
	ctx := context.Background()

	entry, err := svc.AddEntry(ctx, "owner-a", 25, "", false)
	require.NoError(t, err)
	require.Nil(t, entry.CaptureDate)

	captured := true
	updated, err := svc.UpdateEntry(ctx, "owner-a", entry.ID, EntryUpdate{Captured: &captured})
	require.NoError(t, err)
	assert.True(t, updated.Captured)
	assert.NotNil(t, updated.CaptureDate)

	captured = false
	updated, err = svc.UpdateEntry(ctx, "owner-a", entry.ID, EntryUpdate{Captured: &captured})
	require.NoError(t, err)
	assert.False(t, updated.Captured)
	assert.Nil(t, updated.CaptureDate)
}

func TestPokedexService_Stats(t *testing.T) {
	t.Parallel()

	svc, _ := newPokedexService()
	ctx := context.Background()

	stats, err := svc.Stats(ctx, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, &Stats{}, stats)

	_, err = svc.AddEntry(ctx, "owner-a", 25, "", true)
	require.NoError(t, err)
	_, err = svc.AddEntry(ctx, "owner-a", 143, "", false)
	require.NoError(t, err)

	favorite := true
	entries, err := svc.ListEntries(ctx, "owner-a", repository.EntryFilter{})
	require.NoError(t, err)
	_, err = svc.UpdateEntry(ctx, "owner-a", entries[0].ID, EntryUpdate{Favorite: &favorite})
	require.NoError(t, err)

	// Someone else's entries never leak into the numbers.
	_, err = svc.AddEntry(ctx, "owner-b", 1, "", true)
	require.NoError(t, err)

	stats, err = svc.Stats(ctx, "owner-a")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Captured)
	assert.Equal(t, 1, stats.Favorites)
	assert.InDelta(t, 50.0, stats.CompletionPercentage, 0.01)
}

func TestPokedexService_ExportCSV(t *testing.T) {
	t.Parallel()

	svc, _ := newPokedexService()
	ctx := context.Background()

	_, err := svc.AddEntry(ctx, "owner-a", 25, "sparky", true)
	require.NoError(t, err)
	_, err = svc.AddEntry(ctx, "owner-b", 143, "", false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, "owner-a", repository.EntryFilter{}, &buf))

	out := buf.String()
	assert.Contains(t, out, "pokemon_id,pokemon_name,nickname,is_captured,favorite")
	assert.Contains(t, out, "25,pikachu,sparky,true,false")
	assert.NotContains(t, out, "snorlax")
}
