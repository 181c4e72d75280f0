package view

import (
	"fmt"
	"net/http"
)

// Template names of the error pages.
const (
	CSRFFailurePage = "core/403csrf.html"
)

var statusDescriptions = map[int]string{
	http.StatusNotModified:         "Document has not changed since given time",
	http.StatusBadRequest:          "Bad request syntax or unsupported method",
	http.StatusForbidden:           "Request forbidden -- authorization will not succeed",
	http.StatusNotFound:            "Nothing matches the given URI",
	http.StatusInternalServerError: "Server got itself in trouble",
}

// ErrorPage returns the template and data of the error page for code.
// Codes without a page of their own use the 500 page and its wording.
func ErrorPage(code int) (string, map[string]any) {
	description, ok := statusDescriptions[code]
	if !ok {
		code = http.StatusInternalServerError
		description = statusDescriptions[code]
	}
	return fmt.Sprintf("core/%d.html", code), map[string]any{
		"title":          fmt.Sprintf("%d: %s", code, http.StatusText(code)),
		"custom_message": description,
	}
}

// HasErrorPage reports whether code has a dedicated page.
func HasErrorPage(code int) bool {
	_, ok := statusDescriptions[code]
	return ok
}
