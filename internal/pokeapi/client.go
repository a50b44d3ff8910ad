// Package pokeapi is the upstream catalog client. Responses are cached in
// Redis when a cache is configured; upstream calls sit behind a circuit
// breaker and an outbound rate limiter so a misbehaving catalog cannot take
// the service down with it.
package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"pokedex/internal/reliability"
)

var (
	// ErrNotFound means the catalog has no such pokemon, type, or species.
	ErrNotFound = errors.New("pokemon not found")
	// ErrUnavailable means the upstream call failed or the breaker is open.
	ErrUnavailable = errors.New("catalog unavailable")
)

type Client struct {
	baseURL  string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker
	limiter  *rate.Limiter
	cache    *redis.Client
	cacheTTL time.Duration
	log      *zap.Logger
}

// New builds a catalog client. cache may be nil, which disables caching
// entirely; a configured but unreachable cache fails open to direct
// upstream calls.
func New(baseURL string, cache *redis.Client, cacheTTL time.Duration, log *zap.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "pokeapi",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("catalog breaker state change",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 5 * time.Second},
		breaker:  breaker,
		limiter:  rate.NewLimiter(rate.Limit(10), 20),
		cache:    cache,
		cacheTTL: cacheTTL,
		log:      log.Named("pokeapi"),
	}
}

// Pokemon is the subset of catalog data the service exposes.
type Pokemon struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	Sprites struct {
		FrontDefault string `json:"front_default"`
	} `json:"sprites"`
	Types []struct {
		Type struct {
			Name string `json:"name"`
		} `json:"type"`
	} `json:"types"`
	Abilities []struct {
		Ability struct {
			Name string `json:"name"`
		} `json:"ability"`
	} `json:"abilities"`
	Stats []struct {
		BaseStat int `json:"base_stat"`
		Stat     struct {
			Name string `json:"name"`
		} `json:"stat"`
	} `json:"stats"`
}

// TypeNames flattens the type list.
func (p *Pokemon) TypeNames() []string {
	out := make([]string, 0, len(p.Types))
	for _, t := range p.Types {
		out = append(out, t.Type.Name)
	}
	return out
}

// AbilityNames flattens the ability list.
func (p *Pokemon) AbilityNames() []string {
	out := make([]string, 0, len(p.Abilities))
	for _, a := range p.Abilities {
		out = append(out, a.Ability.Name)
	}
	return out
}

// StatMap flattens base stats into name -> value.
func (p *Pokemon) StatMap() map[string]int {
	out := make(map[string]int, len(p.Stats))
	for _, s := range p.Stats {
		out[s.Stat.Name] = s.BaseStat
	}
	return out
}

// SearchPage is one page of the catalog index.
type SearchPage struct {
	Count   int `json:"count"`
	Results []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"results"`
}

// TypeListing names the pokemon belonging to one type.
type TypeListing struct {
	Pokemon []struct {
		Pokemon struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"pokemon"`
	} `json:"pokemon"`
}

// Species carries the flavor text shown on detail views.
type Species struct {
	FlavorTextEntries []struct {
		FlavorText string `json:"flavor_text"`
		Language   struct {
			Name string `json:"name"`
		} `json:"language"`
	} `json:"flavor_text_entries"`
}

// FlavorText returns the first entry in the given language, or "".
func (s *Species) FlavorText(language string) string {
	for _, e := range s.FlavorTextEntries {
		if e.Language.Name == language {
			return e.FlavorText
		}
	}
	return ""
}

func (c *Client) GetPokemon(ctx context.Context, idOrName string) (*Pokemon, error) {
	var p Pokemon
	if err := c.getJSON(ctx, "/pokemon/"+url.PathEscape(idOrName), &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) Search(ctx context.Context, limit, offset int) (*SearchPage, error) {
	var page SearchPage
	path := fmt.Sprintf("/pokemon?limit=%d&offset=%d", limit, offset)
	if err := c.getJSON(ctx, path, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) GetByType(ctx context.Context, typeName string) (*TypeListing, error) {
	var listing TypeListing
	if err := c.getJSON(ctx, "/type/"+url.PathEscape(typeName), &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

func (c *Client) GetSpecies(ctx context.Context, idOrName string) (*Species, error) {
	var s Species
	if err := c.getJSON(ctx, "/pokemon-species/"+url.PathEscape(idOrName), &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// getJSON resolves one catalog path: cache, then rate-limited upstream call
// through the breaker, then cache fill. Cache errors never fail the
// request.
func (c *Client) getJSON(ctx context.Context, path string, out interface{}) error {
	cacheKey := "pokeapi:" + path

	if raw, err := c.cacheGet(ctx, cacheKey); err == nil && raw != nil {
		return json.Unmarshal(raw, out)
	} else if !reliability.ShouldAllow(reliability.FailOpen, err) {
		return err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := c.breaker.Execute(func() (interface{}, error) {
		return c.fetch(ctx, path)
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return ErrUnavailable
		}
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	raw := body.([]byte)
	c.cacheSet(ctx, cacheKey, raw)
	return json.Unmarshal(raw, out)
}

func (c *Client) fetch(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("upstream status %d", resp.StatusCode)
	}

	return io.ReadAll(io.LimitReader(resp.Body, 4<<20))
}

func (c *Client) cacheGet(ctx context.Context, key string) ([]byte, error) {
	if c.cache == nil {
		return nil, nil
	}
	raw, err := c.cache.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		c.log.Warn("cache read failed, falling through to upstream", zap.Error(err))
		return nil, err
	}
	return raw, nil
}

func (c *Client) cacheSet(ctx context.Context, key string, raw []byte) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, key, raw, c.cacheTTL).Err(); err != nil {
		c.log.Warn("cache write failed", zap.Error(err))
	}
}
