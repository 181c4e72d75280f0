package service

import (
	"context"
	"sync"
	"testing"

	"yatube/internal/repository"
	"yatube/internal/testutil"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// imageStoreStub is a stub for ImageStore.
type imageStoreStub struct {
	mu      sync.Mutex
	storeFn func(context.Context, UploadImageInput) (string, error)
	removed []string
}

func (s *imageStoreStub) Store(ctx context.Context, in UploadImageInput) (string, error) {
	return s.storeFn(ctx, in)
}

func (s *imageStoreStub) Remove(rel string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removed = append(s.removed, rel)
}

func storingImages(rel string) *imageStoreStub {
	return &imageStoreStub{storeFn: func(context.Context, UploadImageInput) (string, error) { return rel, nil }}
}

// mailerStub records sent messages.
type mailerStub struct {
	mu   sync.Mutex
	sent []Message
}

func (m *mailerStub) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type testRepos struct {
	db       *gorm.DB
	users    repository.UserRepository
	groups   repository.GroupRepository
	posts    repository.PostRepository
	comments repository.CommentRepository
	follows  repository.FollowRepository
}

func newTestRepos(t *testing.T) testRepos {
	t.Helper()
	db := testutil.NewDB(t)
	return testRepos{
		db:       db,
		users:    repository.NewUserRepository(db),
		groups:   repository.NewGroupRepository(db),
		posts:    repository.NewPostRepository(db),
		comments: repository.NewCommentRepository(db),
		follows:  repository.NewFollowRepository(db),
	}
}

func newTestAuthService(r testRepos, mailer Mailer) *AuthService {
	return NewAuthService(r.users, mailer, AuthConfig{
		Secret:   "test-secret-key-that-is-long-enough",
		SiteURL:  "http://testserver",
		HashCost: bcrypt.MinCost,
	})
}
