package service

import (
	"context"

	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/repository"
)

type FollowService struct {
	follows repository.FollowRepository
	users   repository.UserRepository
}

// FollowStats is what a profile page shows about an author's audience.
type FollowStats struct {
	Following bool
	Followers int64
	Follows   int64
}

func NewFollowService(follows repository.FollowRepository, users repository.UserRepository) *FollowService {
	return &FollowService{follows: follows, users: users}
}

// Follow subscribes actorID to username. Following oneself or an author
// already followed changes nothing. The author is returned either way.
func (s *FollowService) Follow(ctx context.Context, actorID uint, username string) (*models.User, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if author.ID == actorID {
		observability.FollowChanges.WithLabelValues("follow", "noop").Inc()
		return author, nil
	}

	created, err := s.follows.Create(ctx, actorID, author.ID)
	if err != nil {
		return nil, err
	}
	observability.FollowChanges.WithLabelValues("follow", outcome(created)).Inc()
	return author, nil
}

// Unfollow removes the subscription if there is one.
func (s *FollowService) Unfollow(ctx context.Context, actorID uint, username string) (*models.User, error) {
	author, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	deleted, err := s.follows.Delete(ctx, actorID, author.ID)
	if err != nil {
		return nil, err
	}
	observability.FollowChanges.WithLabelValues("unfollow", outcome(deleted)).Inc()
	return author, nil
}

// Stats reports follower counts for authorID and whether viewerID (0 for
// anonymous) follows them.
func (s *FollowService) Stats(ctx context.Context, viewerID, authorID uint) (FollowStats, error) {
	var stats FollowStats
	var err error

	if viewerID != 0 && viewerID != authorID {
		if stats.Following, err = s.follows.Exists(ctx, viewerID, authorID); err != nil {
			return stats, err
		}
	}
	if stats.Followers, err = s.follows.CountFollowers(ctx, authorID); err != nil {
		return stats, err
	}
	if stats.Follows, err = s.follows.CountFollowing(ctx, authorID); err != nil {
		return stats, err
	}
	return stats, nil
}

func outcome(changed bool) string {
	if changed {
		return "changed"
	}
	return "noop"
}
