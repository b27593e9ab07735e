package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/abhisek/conceptree/internal/catalog"
	"github.com/abhisek/conceptree/internal/conceptgraph"
)

// ConceptView is the JSON form of a catalog concept.
type ConceptView struct {
	ID            string   `json:"concept_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Difficulty    int      `json:"difficulty_level"`
	Prerequisites []string `json:"prerequisites"`
	Fundamental   bool     `json:"is_fundamental,omitempty"`
}

func conceptView(c catalog.Concept) ConceptView {
	prereqs := c.Prerequisites
	if prereqs == nil {
		prereqs = []string{}
	}
	return ConceptView{
		ID:            c.ID,
		Title:         c.Title,
		Description:   c.Description,
		Category:      c.Category,
		Difficulty:    c.Difficulty,
		Prerequisites: prereqs,
		Fundamental:   c.Fundamental,
	}
}

func conceptViews(cs []catalog.Concept) []ConceptView {
	out := make([]ConceptView, len(cs))
	for i, c := range cs {
		out[i] = conceptView(c)
	}
	return out
}

// AddConceptRequest is the body of POST /api/concepts.
type AddConceptRequest struct {
	ID            string   `json:"concept_id" binding:"required"`
	Title         string   `json:"title" binding:"required"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Difficulty    int      `json:"difficulty_level" binding:"omitempty,min=1,max=10"`
	Prerequisites []string `json:"prerequisites" binding:"omitempty,dive,required"`
}

// UpdateConceptRequest is the body of PUT /api/concepts/:conceptId.
type UpdateConceptRequest struct {
	Title       *string `json:"title" binding:"omitempty,min=1"`
	Description *string `json:"description"`
	Category    *string `json:"category"`
	Difficulty  *int    `json:"difficulty_level" binding:"omitempty,min=1,max=10"`
}

// GET /api/concepts?category=&q=&offset=&limit=
func (s *Server) listConcepts(c *gin.Context) {
	cat := s.svc.Catalog()
	category := c.Query("category")

	var concepts []catalog.Concept
	switch q := c.Query("q"); {
	case q != "":
		concepts = cat.Search(q, category)
	case category != "":
		concepts = cat.ByCategory(category)
	default:
		offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
		concepts = cat.List(offset, limit)
	}
	c.JSON(http.StatusOK, gin.H{
		"concepts": conceptViews(concepts),
		"total":    cat.Len(),
	})
}

// POST /api/concepts
func (s *Server) addConcept(c *gin.Context) {
	var req AddConceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest{err})
		return
	}
	con, created, err := s.svc.AddConcept(c.Request.Context(), catalog.Concept{
		ID:            req.ID,
		Title:         req.Title,
		Description:   req.Description,
		Category:      req.Category,
		Difficulty:    req.Difficulty,
		Prerequisites: req.Prerequisites,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	c.JSON(code, gin.H{"concept": conceptView(con), "created": created})
}

// GET /api/concepts/:conceptId
func (s *Server) getConcept(c *gin.Context) {
	con, err := s.svc.GetConcept(c.Param("conceptId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"concept": conceptView(con)})
}

// PUT /api/concepts/:conceptId
func (s *Server) updateConcept(c *gin.Context) {
	var req UpdateConceptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest{err})
		return
	}
	con, err := s.svc.UpdateConcept(c.Request.Context(), c.Param("conceptId"), catalog.ConceptPatch{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Difficulty:  req.Difficulty,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"concept": conceptView(con)})
}

// DELETE /api/concepts/:conceptId
func (s *Server) removeConcept(c *gin.Context) {
	touched, err := s.svc.RemoveConcept(c.Request.Context(), c.Param("conceptId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	if touched == nil {
		touched = []string{}
	}
	c.JSON(http.StatusOK, gin.H{"removed": catalog.NormalizeID(c.Param("conceptId")), "updated_dependents": touched})
}

// GET /api/concepts/:conceptId/dependencies
func (s *Server) dependencies(c *gin.Context) {
	cat := s.svc.Catalog()
	con, err := cat.Get(c.Param("conceptId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"concept":       conceptView(con),
		"prerequisites": catalog.Summaries(cat.Prerequisites(con.ID)),
		"dependents":    catalog.Summaries(cat.Dependents(con.ID)),
	})
}

// GET /api/concepts/:conceptId/learning-path
func (s *Server) learningPath(c *gin.Context) {
	path, err := s.svc.GetLearningPath(c.Param("conceptId"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": path, "length": len(path)})
}

// POST /api/concepts/:conceptId/prerequisites/:prerequisiteId
func (s *Server) addPrerequisite(c *gin.Context) {
	if err := s.svc.AddPrerequisite(c.Request.Context(), c.Param("conceptId"), c.Param("prerequisiteId")); err != nil {
		s.respondError(c, err)
		return
	}
	s.getConcept(c)
}

// DELETE /api/concepts/:conceptId/prerequisites/:prerequisiteId
func (s *Server) removePrerequisite(c *gin.Context) {
	if err := s.svc.RemovePrerequisite(c.Request.Context(), c.Param("conceptId"), c.Param("prerequisiteId")); err != nil {
		s.respondError(c, err)
		return
	}
	s.getConcept(c)
}

// GET /api/categories
func (s *Server) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": s.svc.Catalog().Categories()})
}

type treeNode struct {
	ConceptView
	PrerequisiteConcepts []catalog.ConceptSummary `json:"prerequisite_concepts"`
}

// GET /api/categories/:category/tree
func (s *Server) categoryTree(c *gin.Context) {
	entries := s.svc.Catalog().CategoryTree(c.Param("category"))
	nodes := make([]treeNode, len(entries))
	for i, e := range entries {
		nodes[i] = treeNode{ConceptView: conceptView(e.Concept), PrerequisiteConcepts: e.Prerequisites}
	}
	c.JSON(http.StatusOK, gin.H{"category": c.Param("category"), "concepts": nodes})
}

// POST /api/catalog/validate
func (s *Server) validateCatalog(c *gin.Context) {
	report, err := s.svc.ValidateCatalog(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// POST /api/ingest
func (s *Server) ingest(c *gin.Context) {
	var req conceptgraph.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.respondError(c, badRequest{err})
		return
	}
	report, err := s.svc.Ingest(c.Request.Context(), req)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, report)
}
