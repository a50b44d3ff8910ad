package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"pokedex/internal/audit"
	"pokedex/internal/middleware"
	"pokedex/internal/pokeapi"
	"pokedex/internal/repository"
	"pokedex/internal/service"
)

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		json.NewEncoder(w).Encode(v)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps service and repository failures onto HTTP
// statuses. A record owned by another identity answers exactly like a
// record that does not exist; the distinction survives only as an
// access_denied audit event.
func (s *Server) respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, repository.ErrNotOwned) {
		s.sink.Emit(audit.Event{
			Kind:     audit.AccessDenied,
			Identity: middleware.Identity(r.Context()),
			Route:    r.URL.Path,
			Detail:   "cross-tenant access attempt",
		})
		respondError(w, http.StatusNotFound, "resource not found")
		return
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		respondError(w, http.StatusNotFound, "resource not found")
	case errors.Is(err, service.ErrInvalidCredential):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrDuplicatePrincipal):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrAuthenticationFailed):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrUnknownPokemon),
		errors.Is(err, service.ErrTeamTooLarge),
		errors.Is(err, service.ErrPokemonNotOwned):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, pokeapi.ErrNotFound):
		respondError(w, http.StatusNotFound, "pokemon not found")
	case errors.Is(err, pokeapi.ErrUnavailable):
		respondError(w, http.StatusBadGateway, "catalog unavailable")
	default:
		s.log.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
