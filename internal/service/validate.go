package service

import (
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	slugPattern   = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)
	schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.-]*://`)
)

// reservedPaths collide with application routes and cannot be used as codes.
var reservedPaths = map[string]bool{
	"about":     true,
	"dashboard": true,
	"history":   true,
	"signup":    true,
	"login":     true,
	"logout":    true,
	"static":    true,
	"ping":      true,
	"api":       true,
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if label := f.Tag.Get("label"); label != "" {
			return label
		}
		return strings.ToLower(f.Name)
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return v
}

// validationError turns validator output into an ErrValidation carrying a
// readable message for the first failing field.
func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}

	fe := verrs[0]
	field := fe.Field()
	if field == "" {
		// validate.Var reports no field; it is only used on paths.
		field = "custom path"
	}
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%w: %s is required", ErrValidation, field)
	case "max":
		return fmt.Errorf("%w: %s must be at most %s characters", ErrValidation, field, fe.Param())
	case "min":
		return fmt.Errorf("%w: %s must be at least %s characters", ErrValidation, field, fe.Param())
	case "email":
		return fmt.Errorf("%w: %s is not a valid email address", ErrValidation, field)
	case "slug":
		return fmt.Errorf("%w: %s may only contain letters, digits, '-' and '_'", ErrValidation, field)
	default:
		return fmt.Errorf("%w: %s is invalid", ErrValidation, field)
	}
}

func checkPath(path string) error {
	if err := validate.Var(path, "max=50,slug"); err != nil {
		return validationError(err)
	}
	if reservedPaths[strings.ToLower(path)] {
		return fmt.Errorf("%w: %q is reserved", ErrValidation, path)
	}
	return nil
}

// normalizeURL prefixes scheme-less input with http:// and requires an
// absolute http(s) URL.
func normalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if !schemePattern.MatchString(raw) {
		raw = "http://" + raw
	}

	u, err := url.ParseRequestURI(raw)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("%w: long url is not a valid URL", ErrValidation)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: long url must use http or https", ErrValidation)
	}

	return u.String(), nil
}
