package book

import (
	"errors"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid is matched by every *ValidationError.
var ErrInvalid = errors.New("invalid book")

var isbnPattern = regexp.MustCompile(`^\d{10}$`)

// messages is keyed by struct field and failed tag.
var messages = map[string]map[string]string{
	"ISBN": {
		"required": "The book ISBN must be defined.",
		"isbn10":   "The ISBN format must be valid.",
	},
	"Name":   {"required": "The book name must be defined."},
	"Author": {"required": "The book author must be defined."},
	"Price": {
		"required": "The book price must be defined.",
		"gt":       "The book price must be greater than zero.",
	},
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	v.RegisterStructValidation(validateISBNFormat, Book{})
	return v
}

// validateISBNFormat runs at struct level so an empty ISBN reports both the
// required and the format failure.
func validateISBNFormat(sl validator.StructLevel) {
	b := sl.Current().Interface().(Book)
	if !isbnPattern.MatchString(b.ISBN) {
		sl.ReportError(b.ISBN, "isbn", "ISBN", "isbn10", "")
	}
}

// FieldError is one failed rule, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every rule the book broke.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages(), " ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalid }

func (e *ValidationError) Messages() []string {
	out := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		out = append(out, f.Message)
	}
	return out
}

// Validate checks the field rules. It does not look at storage, so ISBN
// uniqueness is not part of it.
func (b Book) Validate() error {
	err := validate.Struct(b)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	out := &ValidationError{}
	for _, fe := range verrs {
		msg, ok := messages[fe.StructField()][fe.Tag()]
		if !ok {
			msg = "The book " + fe.Field() + " is invalid."
		}
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: msg})
	}
	return out
}
