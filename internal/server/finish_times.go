package server

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"relaypace/internal/estimate"
	"relaypace/internal/models"
)

// handleGetFinishTimes returns the team's recorded finish times.
func (s *Server) handleGetFinishTimes(c *gin.Context) {
	times, err := s.store.GetFinishTimes(c.Request.Context(), c.Param("name"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, times)
}

// handleReplaceFinishTimes swaps in the posted set. A batch naming another
// team's runner or loop is rejected whole.
func (s *Server) handleReplaceFinishTimes(c *gin.Context) {
	var times []models.ActualFinishTime
	if err := c.ShouldBindJSON(&times); err != nil {
		s.respondError(c, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	if err := s.store.ReplaceFinishTimes(c.Request.Context(), c.Param("name"), times); err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, nil)
}

// handleEstimates computes the leg table and trail paces from stored data.
func (s *Server) handleEstimates(c *gin.Context) {
	ctx := c.Request.Context()
	name := c.Param("name")

	team, err := s.store.GetTeamByName(ctx, name)
	if err != nil {
		s.respondError(c, err)
		return
	}
	times, err := s.store.GetFinishTimes(ctx, name)
	if err != nil {
		s.respondError(c, err)
		return
	}

	table, err := estimate.BuildTable(team, times)
	if err != nil {
		s.respondError(c, err)
		return
	}
	respondSuccess(c, http.StatusOK, table)
}
