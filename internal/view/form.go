package view

import "yatube/internal/models"

// Form is the state of an HTML form: submitted values and their errors.
type Form struct {
	Values map[string]string
	Errors models.FormErrors
}

// NewForm returns a form pre-filled with values.
func NewForm(values map[string]string) *Form {
	if values == nil {
		values = map[string]string{}
	}
	return &Form{Values: values, Errors: models.FormErrors{}}
}

func (f *Form) Value(name string) string {
	return f.Values[name]
}

func (f *Form) ErrorsFor(name string) []string {
	return f.Errors.Get(name)
}

func (f *Form) NonFieldErrors() []string {
	return f.Errors.NonField()
}

func (f *Form) HasErrors() bool {
	return !f.Errors.Empty()
}

// WithErrors attaches field errors and returns f.
func (f *Form) WithErrors(errs models.FormErrors) *Form {
	if errs != nil {
		f.Errors = errs
	}
	return f
}
