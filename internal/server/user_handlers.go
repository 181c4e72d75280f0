package server

import (
	"yatube/internal/repository"

	"github.com/gofiber/fiber/v2"
)

// Profile handles GET /profile/:username/
func (s *Server) Profile(c *fiber.Ctx) error {
	ctx := c.UserContext()
	author, err := s.userRepo.GetByUsername(ctx, c.Params("username"))
	if err != nil {
		return err
	}

	page, err := s.postService.ListPosts(ctx, repository.PostFilter{AuthorID: author.ID}, c.Query("page"))
	if err != nil {
		return err
	}

	var viewerID uint
	if u := viewer(c); u != nil {
		viewerID = u.ID
	}
	stats, err := s.followService.Stats(ctx, viewerID, author.ID)
	if err != nil {
		return err
	}

	return s.render(c, "posts/profile.html", fiber.Map{
		"author":  author,
		"page":    page,
		"stats":   stats,
		"is_self": viewerID == author.ID,
	})
}

// ProfileFollow handles GET /profile/:username/follow/
func (s *Server) ProfileFollow(c *fiber.Ctx) error {
	author, err := s.followService.Follow(c.UserContext(), viewer(c).ID, c.Params("username"))
	if err != nil {
		return err
	}
	return c.Redirect(author.URL(), fiber.StatusFound)
}

// ProfileUnfollow handles GET /profile/:username/unfollow/
func (s *Server) ProfileUnfollow(c *fiber.Ctx) error {
	author, err := s.followService.Unfollow(c.UserContext(), viewer(c).ID, c.Params("username"))
	if err != nil {
		return err
	}
	return c.Redirect(author.URL(), fiber.StatusFound)
}
