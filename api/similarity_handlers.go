package api

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// IslandsResponse wraps the connected groups of similar categories.
type IslandsResponse struct {
	Islands [][]string `json:"rabbit_islands"`
}

// handleAddSimilarity relates two existing categories.
func (s *Server) handleAddSimilarity(c *fiber.Ctx) error {
	var req SimilarityRequest
	if err := bind(c, &req); err != nil {
		return s.respondError(c, err)
	}

	if err := s.catalog.AddSimilarity(c.UserContext(), req.CategoryName1, req.CategoryName2); err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(req)
}

// handleRemoveSimilarity deletes a pair. Removing an unknown pair succeeds.
func (s *Server) handleRemoveSimilarity(c *fiber.Ctx) error {
	var req SimilarityRequest
	if err := bind(c, &req); err != nil {
		return s.respondError(c, err)
	}

	if err := s.catalog.RemoveSimilarity(c.UserContext(), req.CategoryName1, req.CategoryName2); err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(req)
}

// handleSimilarCategories returns the category records related to a category.
func (s *Server) handleSimilarCategories(c *fiber.Ctx) error {
	similar, err := s.catalog.SimilarCategories(c.UserContext(), c.Params("name"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(similar)
}

// handleRabbitHoleAndIslands runs both analyses over one snapshot.
func (s *Server) handleRabbitHoleAndIslands(c *fiber.Ctx) error {
	ctx, cancel := s.analysisContext(c)
	defer cancel()

	report, err := s.catalog.Analyze(ctx)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(report)
}

// handleRabbitHole returns the longest similarity chains.
func (s *Server) handleRabbitHole(c *fiber.Ctx) error {
	ctx, cancel := s.analysisContext(c)
	defer cancel()

	hole, err := s.catalog.RabbitHole(ctx)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(hole)
}

// handleRabbitIslands returns the connected groups of similar categories.
func (s *Server) handleRabbitIslands(c *fiber.Ctx) error {
	ctx, cancel := s.analysisContext(c)
	defer cancel()

	islands, err := s.catalog.Islands(ctx)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(IslandsResponse{Islands: islands})
}

func (s *Server) analysisContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.config.AnalysisTimeout)
}
