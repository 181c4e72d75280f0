// Package validation provides input validation utilities
package validation

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"
)

// UsernameMaxLength matches the users.username column.
const UsernameMaxLength = 150

var (
	usernameRegex = regexp.MustCompile(`^[\p{L}\p{N}_.@+-]+$`)
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	slugRegex     = regexp.MustCompile(`^[-a-zA-Z0-9_]+$`)
)

// Messages shown next to form fields.
var (
	ErrUsernameRequired = errors.New("This field is required.")
	ErrUsernameTooLong  = errors.New("Ensure this value has at most 150 characters.")
	ErrUsernameInvalid  = errors.New("Enter a valid username. This value may contain only letters, numbers, and @/./+/-/_ characters.")
	ErrEmailInvalid     = errors.New("Enter a valid email address.")
	ErrSlugInvalid      = errors.New("Enter a valid “slug” consisting of letters, numbers, underscores or hyphens.")
)

// ValidateUsername checks if a username meets requirements
func ValidateUsername(username string) error {
	if username == "" {
		return ErrUsernameRequired
	}
	if utf8.RuneCountInString(username) > UsernameMaxLength {
		return ErrUsernameTooLong
	}
	if !usernameRegex.MatchString(username) {
		return ErrUsernameInvalid
	}
	return nil
}

// ValidateEmail checks basic email format. An empty address is allowed.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if len(email) > 254 || !emailRegex.MatchString(email) {
		return ErrEmailInvalid
	}
	return nil
}

// NormalizeEmail lowercases the domain part, leaving the local part as typed.
func NormalizeEmail(email string) string {
	email = strings.TrimSpace(email)
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return email
	}
	return email[:at+1] + strings.ToLower(email[at+1:])
}

// ValidateSlug validates a group slug.
func ValidateSlug(slug string) error {
	if len(slug) > 200 || !slugRegex.MatchString(slug) {
		return ErrSlugInvalid
	}
	return nil
}
