package view

import (
	"html/template"
	"strconv"
	"strings"
	"time"
	"unicode"

	"yatube/internal/models"
)

// Funcs are the helpers available to every template.
func Funcs() template.FuncMap {
	return template.FuncMap{
		"uglify":        Uglify,
		"truncatewords": TruncateWords,
		"linebreaksbr":  LineBreaks,
		"date":          FormatDate,
		"media":         MediaURL,
		"pageURL":       PageURL,
		"preview":       models.Preview,
		"add":           func(a, b int) int { return a + b },
		"itoa":          func(n uint) string { return strconv.FormatUint(uint64(n), 10) },
		"field":         NewField,
	}
}

// Uglify alternates letter case: lower, upper, lower...
func Uglify(text string) string {
	var b strings.Builder
	i := 0
	for _, r := range text {
		if i%2 == 1 {
			b.WriteRune(unicode.ToUpper(r))
		} else {
			b.WriteRune(unicode.ToLower(r))
		}
		i++
	}
	return b.String()
}

// TruncateWords keeps the first n words of text, adding " …" when cut.
func TruncateWords(n int, text string) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " …"
}

// LineBreaks escapes text and turns newlines into <br>.
func LineBreaks(text string) template.HTML {
	escaped := template.HTMLEscapeString(strings.ReplaceAll(text, "\r\n", "\n"))
	return template.HTML(strings.ReplaceAll(escaped, "\n", "<br>")) //nolint:gosec // input is escaped above
}

// FormatDate renders t as "02 Jan 2006".
func FormatDate(t time.Time) string {
	return t.Format("02 Jan 2006")
}

// MediaURL maps a stored path to its public URL.
func MediaURL(rel string) string {
	if rel == "" {
		return ""
	}
	return "/media/" + strings.TrimPrefix(rel, "/")
}

// PageURL is the query string selecting page n.
func PageURL(n int) string {
	return "?page=" + strconv.Itoa(n)
}

// Field is one input of a Form, as rendered by the "input" template.
type Field struct {
	Form     *Form
	Name     string
	Label    string
	Type     string
	Required bool
}

// NewField describes an input; a label ending in "*" marks it required.
func NewField(form *Form, name, label, typ string) Field {
	required := strings.HasSuffix(label, "*")
	return Field{
		Form:     form,
		Name:     name,
		Label:    strings.TrimSpace(strings.TrimSuffix(label, "*")),
		Type:     typ,
		Required: required,
	}
}

// Value is the submitted value; passwords are never echoed back.
func (f Field) Value() string {
	if f.Form == nil || f.Type == "password" {
		return ""
	}
	return f.Form.Value(f.Name)
}

func (f Field) Errors() []string {
	if f.Form == nil {
		return nil
	}
	return f.Form.ErrorsFor(f.Name)
}
