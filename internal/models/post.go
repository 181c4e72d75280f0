package models

import (
	"fmt"
	"time"
)

// PreviewSymbols is how many runes of text the string form of a post or comment keeps.
const PreviewSymbols = 15

// Group is a community that posts may optionally belong to.
type Group struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Title       string `gorm:"size:200;not null" json:"title"`
	Description string `gorm:"type:text;not null" json:"description"`
	Slug        string `gorm:"size:200;uniqueIndex;not null" json:"slug"`
}

func (g *Group) String() string {
	return g.Title
}

// URL returns the group feed path.
func (g *Group) URL() string {
	return "/group/" + g.Slug + "/"
}

// Post is a user-authored text entry, optionally tagged with a Group and an image.
type Post struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	Created  time.Time `gorm:"autoCreateTime;not null;index" json:"created"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
	GroupID  *uint     `gorm:"index" json:"group_id,omitempty"`
	Group    *Group    `gorm:"foreignKey:GroupID;constraint:OnDelete:SET NULL" json:"group,omitempty"`
	// Image is a path relative to the media root, e.g. "posts/<name>.jpg".
	Image string `gorm:"size:255" json:"image,omitempty"`
}

func (p *Post) String() string {
	return Preview(p.Text)
}

// URL returns the post detail path.
func (p *Post) URL() string {
	return fmt.Sprintf("/posts/%d/", p.ID)
}

// ImageWebP returns the path of the WebP rendition stored next to Image.
func (p *Post) ImageWebP() string {
	if p.Image == "" {
		return ""
	}
	if n := len(p.Image); n > 4 && p.Image[n-4:] == ".jpg" {
		return p.Image[:n-4] + ".webp"
	}
	return ""
}

// Comment is a reply attached to exactly one Post.
type Comment struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Text     string    `gorm:"type:text;not null" json:"text"`
	Created  time.Time `gorm:"autoCreateTime;not null;index" json:"created"`
	PostID   uint      `gorm:"not null;index" json:"post_id"`
	Post     *Post     `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"post,omitempty"`
	AuthorID uint      `gorm:"not null;index" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
}

func (c *Comment) String() string {
	return Preview(c.Text)
}

// Follow is a directed subscription from User to Author.
type Follow struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	Created  time.Time `gorm:"autoCreateTime;not null;index" json:"created"`
	UserID   uint      `gorm:"not null;uniqueIndex:idx_follow_pair" json:"user_id"`
	User     User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user"`
	AuthorID uint      `gorm:"not null;uniqueIndex:idx_follow_pair;check:cannot_follow_yourself,user_id <> author_id" json:"author_id"`
	Author   User      `gorm:"foreignKey:AuthorID;constraint:OnDelete:CASCADE" json:"author"`
}

func (f *Follow) String() string {
	return fmt.Sprintf("%s follows %s", f.User.Username, f.Author.Username)
}

// Preview cuts text to PreviewSymbols runes.
func Preview(text string) string {
	return Truncate(text, PreviewSymbols)
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
