package server

import (
	"fmt"

	"yatube/internal/models"

	"github.com/gofiber/fiber/v2"
)

// AddComment handles POST /posts/:id/comment/. An empty comment is dropped
// and the visitor lands back on the post either way.
func (s *Server) AddComment(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}

	_, err = s.commentService.AddComment(c.UserContext(), viewer(c).ID, id, c.FormValue("text"))
	if _, invalid := models.FormErrorsOf(err); err != nil && !invalid {
		return err
	}
	return c.Redirect(fmt.Sprintf("/posts/%d/", id), fiber.StatusFound)
}
