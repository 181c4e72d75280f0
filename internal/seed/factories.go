package seed

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"yatube/internal/models"

	"github.com/brianvoe/gofakeit/v6"
)

// Factory builds unsaved domain entities with fake content.
type Factory struct {
	faker   *gofakeit.Faker
	rnd     *rand.Rand
	maxDays int
	now     time.Time
}

// NewFactory returns a Factory. A zero seed picks a random one.
func NewFactory(seed int64, maxDays int) *Factory {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if maxDays <= 0 {
		maxDays = 90
	}
	return &Factory{
		faker: gofakeit.New(seed),
		//nolint:gosec // Weak random number generator is fine for seeding
		rnd:     rand.New(rand.NewSource(seed)),
		maxDays: maxDays,
		now:     time.Now(),
	}
}

// BuildUser returns a user with a username unique per index n.
func (f *Factory) BuildUser(n int, passwordHash string) *models.User {
	first, last := f.faker.FirstName(), f.faker.LastName()
	username := fmt.Sprintf("%s%d", strings.ToLower(sanitizeUsername(first+"_"+last)), n)
	return &models.User{
		Username:  username,
		Email:     username + "@example.com",
		FirstName: first,
		LastName:  last,
		Password:  passwordHash,
	}
}

// BuildPost returns a post by author, in group when one is given, created
// somewhere in the last maxDays days.
func (f *Factory) BuildPost(author *models.User, group *models.Group) *models.Post {
	post := &models.Post{
		Text:     f.faker.Paragraph(1, f.rnd.Intn(4)+1, 12, "\n\n"),
		AuthorID: author.ID,
		Created:  f.pastTime(f.now),
	}
	if group != nil {
		post.GroupID = &group.ID
	}
	return post
}

// BuildComment returns a comment by author on post, created after the post.
func (f *Factory) BuildComment(post *models.Post, author *models.User) *models.Comment {
	created := post.Created.Add(time.Duration(f.rnd.Int63n(int64(f.now.Sub(post.Created)) + 1)))
	return &models.Comment{
		Text:     f.faker.Sentence(f.rnd.Intn(12) + 3),
		PostID:   post.ID,
		AuthorID: author.ID,
		Created:  created,
	}
}

func (f *Factory) pastTime(from time.Time) time.Time {
	back := time.Duration(f.rnd.Intn(f.maxDays))*24*time.Hour +
		time.Duration(f.rnd.Intn(24))*time.Hour +
		time.Duration(f.rnd.Intn(60))*time.Minute
	return from.Add(-back)
}

func sanitizeUsername(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		}
		return -1
	}, s)
}
