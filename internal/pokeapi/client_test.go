package pokeapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const pikachuJSON = `{
	"id": 25,
	"name": "pikachu",
	"sprites": {"front_default": "https://img/25.png"},
	"types": [{"type": {"name": "electric"}}],
	"abilities": [{"ability": {"name": "static"}}],
	"stats": [{"base_stat": 35, "stat": {"name": "hp"}}]
}`

func testUpstream(t *testing.T, hits *atomic.Int64) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			hits.Add(1)
		}
		switch r.URL.Path {
		case "/pokemon/pikachu", "/pokemon/25":
			w.Write([]byte(pikachuJSON))
		case "/pokemon":
			w.Write([]byte(`{"count": 1302, "results": [{"name": "bulbasaur", "url": "u1"}]}`))
		case "/type/electric":
			w.Write([]byte(`{"pokemon": [{"pokemon": {"name": "pikachu", "url": "u25"}}]}`))
		case "/pokemon-species/pikachu":
			w.Write([]byte(`{"flavor_text_entries": [{"flavor_text": "Mouse.", "language": {"name": "en"}}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClient_GetPokemon(t *testing.T) {
	t.Parallel()

	upstream := testUpstream(t, nil)
	client := New(upstream.URL, nil, time.Minute, zap.NewNop())

	p, err := client.GetPokemon(context.Background(), "pikachu")
	require.NoError(t, err)
	assert.Equal(t, 25, p.ID)
	assert.Equal(t, "pikachu", p.Name)
	assert.Equal(t, "https://img/25.png", p.Sprites.FrontDefault)
	assert.Equal(t, []string{"electric"}, p.TypeNames())
	assert.Equal(t, []string{"static"}, p.AbilityNames())
	assert.Equal(t, map[string]int{"hp": 35}, p.StatMap())
}

func TestClient_NotFound(t *testing.T) {
	t.Parallel()

	upstream := testUpstream(t, nil)
	client := New(upstream.URL, nil, time.Minute, zap.NewNop())

	_, err := client.GetPokemon(context.Background(), "missingno")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClient_SearchTypeSpecies(t *testing.T) {
	t.Parallel()

	upstream := testUpstream(t, nil)
	client := New(upstream.URL, nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	page, err := client.Search(ctx, 20, 0)
	require.NoError(t, err)
	assert.Equal(t, 1302, page.Count)
	require.Len(t, page.Results, 1)
	assert.Equal(t, "bulbasaur", page.Results[0].Name)

	listing, err := client.GetByType(ctx, "electric")
	require.NoError(t, err)
	require.Len(t, listing.Pokemon, 1)
	assert.Equal(t, "pikachu", listing.Pokemon[0].Pokemon.Name)

	species, err := client.GetSpecies(ctx, "pikachu")
	require.NoError(t, err)
	assert.Equal(t, "Mouse.", species.FlavorText("en"))
	assert.Empty(t, species.FlavorText("ja"))
}

func TestClient_CacheSkipsUpstream(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	upstream := testUpstream(t, &hits)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	client := New(upstream.URL, rdb, time.Minute, zap.NewNop())
	ctx := context.Background()

	_, err := client.GetPokemon(ctx, "pikachu")
	require.NoError(t, err)
	require.EqualValues(t, 1, hits.Load())

	p, err := client.GetPokemon(ctx, "pikachu")
	require.NoError(t, err)
	assert.Equal(t, "pikachu", p.Name)
	assert.EqualValues(t, 1, hits.Load(), "second lookup must come from cache")

	// Expired cache entries fall through to the upstream again.
	mr.FastForward(2 * time.Minute)
	_, err = client.GetPokemon(ctx, "pikachu")
	require.NoError(t, err)
	assert.EqualValues(t, 2, hits.Load())
}

func TestClient_DeadCacheFailsOpen(t *testing.T) {
	t.Parallel()

	var hits atomic.Int64
	upstream := testUpstream(t, &hits)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	mr.Close()

	client := New(upstream.URL, rdb, time.Minute, zap.NewNop())

	p, err := client.GetPokemon(context.Background(), "pikachu")
	require.NoError(t, err)
	assert.Equal(t, "pikachu", p.Name)
	assert.EqualValues(t, 1, hits.Load())
}

func TestClient_BreakerOpensOnRepeatedFailure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	client := New(srv.URL, nil, time.Minute, zap.NewNop())
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_, err := client.GetPokemon(ctx, "pikachu")
		require.ErrorIs(t, err, ErrUnavailable)
	}

	// The breaker is open now; the failure no longer reaches the wire.
	srv.Close()
	_, err := client.GetPokemon(ctx, "pikachu")
	assert.ErrorIs(t, err, ErrUnavailable)
}
