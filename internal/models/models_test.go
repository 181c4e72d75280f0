package models

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPreview(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"short text kept", "hello", "hello"},
		{"exactly fifteen", "123456789012345", "123456789012345"},
		{"long text cut", "1234567890123456789", "123456789012345"},
		{"cyrillic counted by rune", "Тестовый пост про котиков", "Тестовый пост п"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Preview(tt.text))
		})
	}
}

func TestStringForms(t *testing.T) {
	g := &Group{Title: "Cats", Slug: "cats"}
	assert.Equal(t, "Cats", g.String())
	assert.Equal(t, "/group/cats/", g.URL())

	p := &Post{ID: 42, Text: "A post that is clearly longer than fifteen"}
	assert.Equal(t, "A post that is ", p.String())
	assert.Equal(t, "/posts/42/", p.URL())

	c := &Comment{Text: "nice"}
	assert.Equal(t, "nice", c.String())

	f := &Follow{User: User{Username: "alice"}, Author: User{Username: "bob"}}
	assert.Equal(t, "alice follows bob", f.String())

	u := &User{Username: "bob"}
	assert.Equal(t, "bob", u.FullName())
	u.FirstName, u.LastName = "Bob", "Builder"
	assert.Equal(t, "Bob Builder", u.FullName())
	assert.Equal(t, "/profile/bob/", u.URL())
}

func TestPost_ImageWebP(t *testing.T) {
	assert.Equal(t, "", (&Post{}).ImageWebP())
	assert.Equal(t, "posts/abc.webp", (&Post{Image: "posts/abc.jpg"}).ImageWebP())
	assert.Equal(t, "", (&Post{Image: "posts/abc.gif"}).ImageWebP())
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, StatusFor(NewNotFoundError("Post", 1)))
	assert.Equal(t, http.StatusBadRequest, StatusFor(NewValidationError("bad")))
	assert.Equal(t, http.StatusForbidden, StatusFor(NewUnauthorizedError("no")))
	assert.Equal(t, http.StatusForbidden, StatusFor(NewForbiddenError("no")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(NewInternalError(errors.New("boom"))))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("plain")))
}

func TestFormErrors(t *testing.T) {
	fe := FormErrors{}
	assert.True(t, fe.Empty())

	fe.Add("text", "This field is required.")
	fe.Add("", "Something else.")
	assert.False(t, fe.Empty())
	assert.True(t, fe.Has("text"))
	assert.False(t, fe.Has("group"))
	assert.Equal(t, []string{"Something else."}, fe.NonField())

	err := NewFormError(fe)
	got, ok := FormErrorsOf(err)
	assert.True(t, ok)
	assert.Equal(t, fe, got)

	_, ok = FormErrorsOf(NewValidationError("no fields"))
	assert.False(t, ok)
	assert.True(t, IsNotFound(NewNotFoundError("Group", "cats")))
	assert.False(t, IsNotFound(NewValidationError("x")))
}
