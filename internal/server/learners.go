package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/conceptree/internal/mastery"
)

// ScoreRequest is the body of POST .../skills/:conceptId/score.
type ScoreRequest struct {
	Score *int `json:"score" binding:"required"`
}

// ExplanationRequest is the body of POST .../skills/:conceptId/explanation.
type ExplanationRequest struct {
	Explanation string `json:"explanation" binding:"required"`
}

// GET /api/learners/:learnerId/skills
func (s *Server) learnerSkills(c *gin.Context) {
	states, err := s.svc.LearnerStates(c.Request.Context(), c.Param("learnerId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"learner_id": c.Param("learnerId"), "skills": states})
}

// GET /api/learners/:learnerId/available
func (s *Server) available(c *gin.Context) {
	concepts, err := s.svc.GetAvailableConcepts(c.Request.Context(), c.Param("learnerId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": conceptViews(concepts), "count": len(concepts)})
}

// GET /api/learners/:learnerId/path/:conceptId
func (s *Server) learnerPath(c *gin.Context) {
	steps, err := s.svc.GetLearnerPath(c.Request.Context(), c.Param("learnerId"), c.Param("conceptId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": steps, "length": len(steps)})
}

// POST /api/learners/:learnerId/skills/:conceptId/score
func (s *Server) recordScore(c *gin.Context) {
	var req ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest{err})
		return
	}
	res, err := s.svc.RecordScore(c.Request.Context(), c.Param("learnerId"), c.Param("conceptId"), *req.Score)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /api/learners/:learnerId/skills/:conceptId/explanation
func (s *Server) submitExplanation(c *gin.Context) {
	var req ExplanationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest{err})
		return
	}
	res, err := s.svc.SubmitExplanation(c.Request.Context(), c.Param("learnerId"), c.Param("conceptId"), req.Explanation)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// DELETE /api/learners/:learnerId/skills/:conceptId
func (s *Server) resetConcept(c *gin.Context) {
	s.reset(c, c.Param("conceptId"))
}

// DELETE /api/learners/:learnerId/skills
func (s *Server) resetLearner(c *gin.Context) {
	s.reset(c, "")
}

func (s *Server) reset(c *gin.Context, conceptID string) {
	ts, err := s.svc.ResetLearner(c.Request.Context(), c.Param("learnerId"), conceptID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	type change struct {
		ConceptID string         `json:"concept_id"`
		From      mastery.Status `json:"from"`
		To        mastery.Status `json:"to"`
	}
	changes := make([]change, len(ts))
	for i, t := range ts {
		changes[i] = change{ConceptID: t.ConceptID, From: t.From, To: t.To}
	}
	c.JSON(http.StatusOK, gin.H{"learner_id": c.Param("learnerId"), "changes": changes})
}

// GET /api/learners/:learnerId/statistics
func (s *Server) statistics(c *gin.Context) {
	stats, err := s.svc.Stats(c.Request.Context(), c.Param("learnerId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// GET /api/learners/:learnerId/export
func (s *Server) exportLearner(c *gin.Context) {
	exp, err := s.svc.ExportLearner(c.Request.Context(), c.Param("learnerId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exp)
}

// POST /api/learners/:learnerId/import
func (s *Server) importLearner(c *gin.Context) {
	var data mastery.LearnerExport
	if err := c.ShouldBindJSON(&data); err != nil {
		s.respondError(c, badRequest{err})
		return
	}
	res, err := s.svc.ImportLearner(c.Request.Context(), c.Param("learnerId"), &data)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
