// Package seed fills a database with demo groups, users, posts, comments
// and follows. Intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"

	"yatube/internal/database"
	"yatube/internal/models"
	"yatube/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DemoPassword is the password of every seeded user.
const DemoPassword = "password123"

// Options configures a seed run.
type Options struct {
	NumUsers    int
	NumPosts    int
	MaxComments int // per post
	MaxFollows  int // per user
	MaxDays     int
	ShouldClean bool
	// RandSeed makes a run reproducible; zero picks a random seed.
	RandSeed int64
	// PasswordCost defaults to bcrypt.DefaultCost.
	PasswordCost int
}

// Result counts what a run created.
type Result struct {
	Groups   int
	Users    int
	Posts    int
	Comments int
	Follows  int
}

// Seed populates the database with sample data.
func Seed(db *gorm.DB, opts Options) (*Result, error) {
	if opts.MaxComments <= 0 {
		opts.MaxComments = 3
	}
	if opts.MaxFollows <= 0 {
		opts.MaxFollows = 5
	}
	if opts.PasswordCost == 0 {
		opts.PasswordCost = bcrypt.DefaultCost
	}

	log.Println("Starting database seeding...")

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
		log.Println("✓ Existing data cleared")
	}

	f := NewFactory(opts.RandSeed, opts.MaxDays)
	res := &Result{}

	groups, err := Groups(db)
	if err != nil {
		return nil, err
	}
	res.Groups = len(groups)
	log.Printf("✓ %d groups ready", len(groups))

	users, err := createUsers(db, f, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create users: %w", err)
	}
	res.Users = len(users)
	log.Printf("✓ %d users created", len(users))

	if len(users) == 0 {
		log.Println("No users, skipping posts, comments and follows")
		return res, nil
	}

	posts, err := createPosts(db, f, users, groups, opts.NumPosts)
	if err != nil {
		return nil, fmt.Errorf("failed to create posts: %w", err)
	}
	res.Posts = len(posts)
	log.Printf("✓ %d posts created", len(posts))

	if res.Comments, err = createComments(db, f, users, posts, opts.MaxComments); err != nil {
		return nil, fmt.Errorf("failed to create comments: %w", err)
	}
	log.Printf("✓ %d comments created", res.Comments)

	if res.Follows, err = createFollows(db, f, users, opts.MaxFollows); err != nil {
		return nil, fmt.Errorf("failed to create follows: %w", err)
	}
	log.Printf("✓ %d follows created", res.Follows)

	log.Println("Database seeding completed successfully!")
	return res, nil
}

func clearData(db *gorm.DB) error {
	log.Println("Clearing existing data...")
	if database.DriverName(db) == "postgres" {
		return db.Exec(`TRUNCATE TABLE follows, comments, posts, "groups", users RESTART IDENTITY CASCADE;`).Error
	}

	all := database.PersistentModels()
	return db.Transaction(func(tx *gorm.DB) error {
		for i := len(all) - 1; i >= 0; i-- {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(all[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func createUsers(db *gorm.DB, f *Factory, opts Options) ([]models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), opts.PasswordCost)
	if err != nil {
		return nil, err
	}

	users := make([]models.User, 0, opts.NumUsers)
	for i := 0; i < opts.NumUsers; i++ {
		user := f.BuildUser(i, string(hashed))
		if err := db.Create(user).Error; err != nil {
			if database.IsUniqueViolation(err) {
				log.Printf("Skipping existing user %s", user.Username)
				continue
			}
			return nil, err
		}
		users = append(users, *user)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d users...", i)
		}
	}
	return users, nil
}

func createPosts(db *gorm.DB, f *Factory, users []models.User, groups []models.Group, count int) ([]models.Post, error) {
	posts := make([]models.Post, 0, count)
	for i := 0; i < count; i++ {
		author := &users[f.rnd.Intn(len(users))]

		// roughly a third of posts stay outside any group
		var group *models.Group
		if len(groups) > 0 && f.rnd.Intn(3) > 0 {
			group = &groups[f.rnd.Intn(len(groups))]
		}

		post := f.BuildPost(author, group)
		if err := db.Omit(clause.Associations).Create(post).Error; err != nil {
			return nil, err
		}
		posts = append(posts, *post)

		if i > 0 && i%100 == 0 {
			log.Printf("Created %d posts...", i)
		}
	}
	return posts, nil
}

func createComments(db *gorm.DB, f *Factory, users []models.User, posts []models.Post, maxPerPost int) (int, error) {
	total := 0
	for i := range posts {
		n := f.rnd.Intn(maxPerPost + 1)
		for j := 0; j < n; j++ {
			author := &users[f.rnd.Intn(len(users))]
			comment := f.BuildComment(&posts[i], author)
			if err := db.Omit(clause.Associations).Create(comment).Error; err != nil {
				return total, err
			}
			total++
		}
	}
	return total, nil
}

func createFollows(db *gorm.DB, f *Factory, users []models.User, maxPerUser int) (int, error) {
	if len(users) < 2 {
		return 0, nil
	}
	follows := repository.NewFollowRepository(db)
	ctx := context.Background()

	total := 0
	for i := range users {
		n := f.rnd.Intn(maxPerUser + 1)
		for j := 0; j < n; j++ {
			author := users[f.rnd.Intn(len(users))]
			if author.ID == users[i].ID {
				continue
			}
			created, err := follows.Create(ctx, users[i].ID, author.ID)
			if err != nil {
				return total, err
			}
			if created {
				total++
			}
		}
	}
	return total, nil
}
