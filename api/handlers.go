package api

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// DeleteResponse reports a deleted category and the children that moved up
// to its parent.
type DeleteResponse struct {
	Name       string   `json:"name"`
	Reparented []string `json:"reparented"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleStats returns the size of the catalog.
func (s *Server) handleStats(c *fiber.Ctx) error {
	stats, err := s.catalog.Stats(c.UserContext())
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(stats)
}

// handleCreateCategory creates a category, overwriting any existing category
// of the same name.
func (s *Server) handleCreateCategory(c *fiber.Ctx) error {
	var req CategoryRequest
	if err := bind(c, &req); err != nil {
		return s.respondError(c, err)
	}

	created, err := s.catalog.CreateCategory(c.UserContext(), req.Category())
	if err != nil {
		return s.respondError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

// handleListCategories returns the children of the parent_name query
// parameter, or the root-level categories when it is absent.
func (s *Server) handleListCategories(c *fiber.Ctx) error {
	var parent *string
	if p := c.Query("parent_name"); p != "" {
		parent = &p
	}

	children, err := s.catalog.ListChildren(c.UserContext(), parent)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(children)
}

// handleGetCategory returns a single category by name.
func (s *Server) handleGetCategory(c *fiber.Ctx) error {
	got, err := s.catalog.GetCategory(c.UserContext(), c.Params("name"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(got)
}

// handleUpdateCategory applies a sparse update to a category.
func (s *Server) handleUpdateCategory(c *fiber.Ctx) error {
	name := c.Params("name")

	var req CategoryUpdateRequest
	if err := bind(c, &req); err != nil {
		return s.respondError(c, err)
	}
	if req.Name != nil && *req.Name != name {
		return s.respondError(c, RequestError{
			Message: fmt.Sprintf("renaming is not supported: body name %q does not match %q", *req.Name, name),
		})
	}

	updated, err := s.catalog.UpdateCategory(c.UserContext(), name, req.Patch())
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(updated)
}

// handleDeleteCategory removes a category and re-parents its children.
func (s *Server) handleDeleteCategory(c *fiber.Ctx) error {
	name := c.Params("name")

	reparented, err := s.catalog.DeleteCategory(c.UserContext(), name)
	if err != nil {
		return s.respondError(c, err)
	}

	if reparented == nil {
		reparented = []string{}
	}
	return c.JSON(DeleteResponse{Name: name, Reparented: reparented})
}

// handleMoveCategory re-parents a category under the new_parent_name query
// parameter, or to the root level when it is absent.
func (s *Server) handleMoveCategory(c *fiber.Ctx) error {
	var newParent *string
	if p := c.Query("new_parent_name"); p != "" {
		newParent = &p
	}

	moved, err := s.catalog.MoveCategory(c.UserContext(), c.Params("name"), newParent)
	if err != nil {
		return s.respondError(c, err)
	}

	return c.JSON(moved)
}

// handleCategoryTree returns the nested hierarchy below a category.
func (s *Server) handleCategoryTree(c *fiber.Ctx) error {
	tree, err := s.catalog.Tree(c.UserContext(), c.Params("name"))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(tree.Root)
}

// handlePrintCategoryTree writes the indented hierarchy below a category to
// the server log and returns it as plain text.
func (s *Server) handlePrintCategoryTree(c *fiber.Ctx) error {
	tree, err := s.catalog.Tree(c.UserContext(), c.Params("name"))
	if err != nil {
		return s.respondError(c, err)
	}

	outline := tree.Outline()
	s.logger.Info("category tree",
		zap.String("root", tree.Root.Name),
		zap.Int("size", tree.Size()),
	)
	s.logger.Info("\n" + outline)

	return c.SendString(outline)
}
