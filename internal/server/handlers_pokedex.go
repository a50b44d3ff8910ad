package server

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"pokedex/internal/middleware"
	"pokedex/internal/repository"
	"pokedex/internal/service"
)

type addEntryRequest struct {
	PokemonID int    `json:"pokemon_id"`
	Nickname  string `json:"nickname"`
	Captured  bool   `json:"is_captured"`
}

func (s *Server) handleAddEntry(w http.ResponseWriter, r *http.Request) {
	var req addEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := s.pokedexSvc.AddEntry(r.Context(),
		middleware.Identity(r.Context()), req.PokemonID, req.Nickname, req.Captured)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, entry)
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.pokedexSvc.ListEntries(r.Context(),
		middleware.Identity(r.Context()), entryFilter(r))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	entry, err := s.pokedexSvc.GetEntry(r.Context(),
		middleware.Identity(r.Context()), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

type updateEntryRequest struct {
	Nickname *string `json:"nickname"`
	Captured *bool   `json:"is_captured"`
	Favorite *bool   `json:"favorite"`
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var req updateEntryRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	entry, err := s.pokedexSvc.UpdateEntry(r.Context(),
		middleware.Identity(r.Context()), r.PathValue("id"),
		service.EntryUpdate{Nickname: req.Nickname, Captured: req.Captured, Favorite: req.Favorite})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, entry)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	err := s.pokedexSvc.DeleteEntry(r.Context(),
		middleware.Identity(r.Context()), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.pokedexSvc.Stats(r.Context(), middleware.Identity(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExportEntries(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="pokedex.csv"`)

	err := s.pokedexSvc.ExportCSV(r.Context(),
		middleware.Identity(r.Context()), entryFilter(r), w)
	if err != nil {
		s.log.Error("pokedex export failed", zap.Error(err))
	}
}

func entryFilter(r *http.Request) repository.EntryFilter {
	q := r.URL.Query()
	filter := repository.EntryFilter{
		SortBy: q.Get("sort"),
		Desc:   q.Get("order") == "desc",
		Limit:  queryInt(r, "limit", 20),
		Offset: queryInt(r, "offset", 0),
	}
	if raw := q.Get("captured"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			filter.Captured = &b
		}
	}
	if raw := q.Get("favorite"); raw != "" {
		if b, err := strconv.ParseBool(raw); err == nil {
			filter.Favorite = &b
		}
	}
	return filter
}
