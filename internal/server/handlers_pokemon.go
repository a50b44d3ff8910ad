package server

import (
	"net/http"
	"strconv"
)

// The pokemon routes proxy the upstream catalog. They are public but
// quota-gated: anonymous callers are counted per client address.

func (s *Server) handlePokemonSearch(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	page, err := s.catalog.Search(r.Context(), limit, offset)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

func (s *Server) handlePokemonByType(w http.ResponseWriter, r *http.Request) {
	listing, err := s.catalog.GetByType(r.Context(), r.PathValue("name"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, listing)
}

type pokemonDetail struct {
	ID          int            `json:"id"`
	Name        string         `json:"name"`
	Sprite      string         `json:"sprite"`
	Types       []string       `json:"types"`
	Abilities   []string       `json:"abilities"`
	Stats       map[string]int `json:"stats"`
	Description string         `json:"description,omitempty"`
}

func (s *Server) handlePokemonDetail(w http.ResponseWriter, r *http.Request) {
	idOrName := r.PathValue("idOrName")

	p, err := s.catalog.GetPokemon(r.Context(), idOrName)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	detail := pokemonDetail{
		ID:        p.ID,
		Name:      p.Name,
		Sprite:    p.Sprites.FrontDefault,
		Types:     p.TypeNames(),
		Abilities: p.AbilityNames(),
		Stats:     p.StatMap(),
	}

	// Flavor text is cosmetic; a failed species lookup does not fail the
	// detail view.
	if species, err := s.catalog.GetSpecies(r.Context(), idOrName); err == nil {
		detail.Description = species.FlavorText("en")
	}

	respondJSON(w, http.StatusOK, detail)
}

func queryInt(r *http.Request, key string, fallback int) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
