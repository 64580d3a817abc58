package server

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"relaypace/internal/models"
)

var errBadRequest = errors.New("bad request")

type createTeamRequest struct {
	Name string `json:"name"`
}

// handleListTeams returns every team's id and name.
func (s *Server) handleListTeams(c *gin.Context) {
	teams, err := s.store.ListTeams(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, teams)
}

// handleCreateTeam creates a team with the configured seed unless one with
// the same name exists.
func (s *Server) handleCreateTeam(c *gin.Context) {
	var req createTeamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		s.respondError(c, fmt.Errorf("%w: name is required", errBadRequest))
		return
	}

	created, _, err := s.store.CreateTeamIfAbsent(c.Request.Context(), req.Name, s.seed)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !created {
		respondText(c, http.StatusOK, "already exists")
		return
	}
	respondText(c, http.StatusOK, "created new team")
}

// handleGetTeam returns the team with runners and loops in order.
func (s *Server) handleGetTeam(c *gin.Context) {
	team, err := s.store.GetTeamByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, team)
}

// handleUpdateTeam overwrites the team's editable fields.
func (s *Server) handleUpdateTeam(c *gin.Context) {
	var team models.Team
	if err := c.ShouldBindJSON(&team); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	name := c.Param("name")
	if team.Name != name {
		s.respondError(c, fmt.Errorf("%w: body names team %q, path names %q", errBadRequest, team.Name, name))
		return
	}

	if err := s.store.UpdateTeam(c.Request.Context(), team); err != nil {
		s.respondError(c, err)
		return
	}
	respondText(c, http.StatusOK, "success")
}
