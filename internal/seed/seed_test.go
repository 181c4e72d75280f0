package seed

import (
	"testing"

	"yatube/internal/models"
	"yatube/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func testOptions() Options {
	return Options{NumUsers: 6, NumPosts: 25, MaxComments: 2, MaxFollows: 4, MaxDays: 30, RandSeed: 42, PasswordCost: bcrypt.MinCost}
}

func TestBuiltInGroups(t *testing.T) {
	groups, err := BuiltInGroups()
	require.NoError(t, err)
	require.NotEmpty(t, groups)

	seen := map[string]bool{}
	for _, g := range groups {
		assert.False(t, seen[g.Slug], "duplicate slug %s", g.Slug)
		seen[g.Slug] = true
		assert.LessOrEqual(t, len(g.Title), 200)
	}
}

func TestGroups_Upsert(t *testing.T) {
	db := testutil.NewDB(t)

	first, err := Groups(db)
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.Group{}).Where("slug = ?", first[0].Slug).Update("title", "Renamed").Error)

	second, err := Groups(db)
	require.NoError(t, err)
	assert.Len(t, second, len(first))

	var count int64
	require.NoError(t, db.Model(&models.Group{}).Count(&count).Error)
	assert.Equal(t, int64(len(first)), count, "running twice does not duplicate groups")

	var g models.Group
	require.NoError(t, db.Where("slug = ?", first[0].Slug).First(&g).Error)
	assert.Equal(t, first[0].Title, g.Title, "fixture values win")
	assert.Equal(t, first[0].ID, second[0].ID)
}

func TestSeed(t *testing.T) {
	db := testutil.NewDB(t)

	res, err := Seed(db, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 6, res.Users)
	assert.Equal(t, 25, res.Posts)

	var posts int64
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(25), posts)

	var comments int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&comments).Error)
	assert.Equal(t, int64(res.Comments), comments)

	var selfFollows int64
	require.NoError(t, db.Model(&models.Follow{}).Where("user_id = author_id").Count(&selfFollows).Error)
	assert.Zero(t, selfFollows)

	var user models.User
	require.NoError(t, db.First(&user).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(DemoPassword)))
}

func TestSeed_Clean(t *testing.T) {
	db := testutil.NewDB(t)

	_, err := Seed(db, testOptions())
	require.NoError(t, err)

	opts := testOptions()
	opts.ShouldClean = true
	opts.NumPosts = 3
	_, err = Seed(db, opts)
	require.NoError(t, err)

	var users, posts int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Post{}).Count(&posts).Error)
	assert.Equal(t, int64(6), users)
	assert.Equal(t, int64(3), posts)
}

func TestSeed_NoUsers(t *testing.T) {
	db := testutil.NewDB(t)

	res, err := Seed(db, Options{NumPosts: 10, PasswordCost: bcrypt.MinCost})
	require.NoError(t, err)
	assert.Zero(t, res.Posts)
	assert.NotZero(t, res.Groups)
}

func TestFactory_BuildComment_AfterPost(t *testing.T) {
	f := NewFactory(7, 10)
	author := &models.User{ID: 1}
	for i := 0; i < 50; i++ {
		post := f.BuildPost(author, nil)
		post.ID = uint(i + 1)
		assert.False(t, post.Created.After(f.now))
		assert.True(t, post.Created.After(f.now.AddDate(0, 0, -11)))

		c := f.BuildComment(post, author)
		assert.False(t, c.Created.Before(post.Created))
		assert.NotEmpty(t, c.Text)
	}
}

func TestFactory_BuildUser(t *testing.T) {
	f := NewFactory(1, 0)
	u := f.BuildUser(3, "hash")
	assert.Regexp(t, `^[A-Za-z0-9_]+3$`, u.Username)
	assert.Equal(t, u.Username+"@example.com", u.Email)
	assert.Equal(t, "hash", u.Password)
}
