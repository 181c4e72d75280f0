package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// PasswordMinLength is the shortest accepted password.
const PasswordMinLength = 8

const maxSimilarity = 0.7

var nonWord = regexp.MustCompile(`\W+`)

// UserAttributes are the account fields a password must not resemble.
type UserAttributes struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
}

func (a UserAttributes) named() [][2]string {
	return [][2]string{
		{"username", a.Username},
		{"first name", a.FirstName},
		{"last name", a.LastName},
		{"email address", a.Email},
	}
}

// ValidatePassword runs every password rule and returns all failures.
// A nil result means the password is acceptable.
func ValidatePassword(password string, attrs UserAttributes) []string {
	var problems []string

	if msg := similarTo(password, attrs); msg != "" {
		problems = append(problems, msg)
	}
	if utf8.RuneCountInString(password) < PasswordMinLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	if isCommonPassword(password) {
		problems = append(problems, "This password is too common.")
	}
	if password != "" && isAllDigits(password) {
		problems = append(problems, "This password is entirely numeric.")
	}
	return problems
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

func similarTo(password string, attrs UserAttributes) string {
	pwd := strings.ToLower(password)
	for _, attr := range attrs.named() {
		value := strings.ToLower(attr[1])
		if value == "" {
			continue
		}
		parts := append(nonWord.Split(value, -1), value)
		for _, part := range parts {
			if part == "" || exceedsLengthRatio(pwd, part) {
				continue
			}
			if quickRatio(pwd, part) >= maxSimilarity {
				return "The password is too similar to the " + attr[0] + "."
			}
		}
	}
	return ""
}

// exceedsLengthRatio skips comparisons where the password is so much
// longer than the attribute that they cannot be similar.
func exceedsLengthRatio(password, value string) bool {
	pwdLen := utf8.RuneCountInString(password)
	valueLen := utf8.RuneCountInString(value)
	bound := maxSimilarity / 2 * float64(pwdLen)
	return pwdLen >= 10*valueLen && float64(valueLen) < bound
}

// quickRatio is an upper bound on the similarity of a and b: twice the
// size of their character multiset intersection over the total length.
func quickRatio(a, b string) float64 {
	total := utf8.RuneCountInString(a) + utf8.RuneCountInString(b)
	if total == 0 {
		return 1
	}
	avail := make(map[rune]int)
	for _, r := range b {
		avail[r]++
	}
	matches := 0
	for _, r := range a {
		if avail[r] > 0 {
			avail[r]--
			matches++
		}
	}
	return 2 * float64(matches) / float64(total)
}
