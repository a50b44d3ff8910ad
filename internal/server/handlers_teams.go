package server

import (
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"pokedex/internal/middleware"
	"pokedex/internal/service"
)

type createTeamRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PokemonIDs  []int  `json:"pokemon_ids"`
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	team, err := s.teamSvc.CreateTeam(r.Context(),
		middleware.Identity(r.Context()), req.Name, req.Description, req.PokemonIDs)
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, team)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.teamSvc.ListTeams(r.Context(), middleware.Identity(r.Context()))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, teams)
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	team, err := s.teamSvc.GetTeam(r.Context(),
		middleware.Identity(r.Context()), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, team)
}

type updateTeamRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	PokemonIDs  *[]int  `json:"pokemon_ids"`
}

func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	var req updateTeamRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	team, err := s.teamSvc.UpdateTeam(r.Context(),
		middleware.Identity(r.Context()), r.PathValue("id"),
		service.TeamUpdate{Name: req.Name, Description: req.Description, PokemonIDs: req.PokemonIDs})
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, team)
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	err := s.teamSvc.DeleteTeam(r.Context(),
		middleware.Identity(r.Context()), r.PathValue("id"))
	if err != nil {
		s.respondServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExportTeam(w http.ResponseWriter, r *http.Request) {
	teamID := r.PathValue("id")

	// Resolve the team first so an ownership mismatch still answers 404
	// instead of a half-written CSV.
	if _, err := s.teamSvc.GetTeam(r.Context(), middleware.Identity(r.Context()), teamID); err != nil {
		s.respondServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="team_%s.csv"`, teamID))

	err := s.teamSvc.ExportCSV(r.Context(), middleware.Identity(r.Context()), teamID, w)
	if err != nil {
		s.log.Error("team export failed", zap.Error(err))
	}
}
