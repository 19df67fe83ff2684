package validator

import (
	"fmt"
	"net/mail"
	"net/url"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{Field: field, Message: "field is required", Key: "validation.required"},
	}
}

func MaxLenString(field, value string, limit int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= limit },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at most %d characters long", limit),
			Key:     "validation.max_length",
		},
	}
}

func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool {
			addr, err := mail.ParseAddress(value)
			return err == nil && addr.Address == value
		},
		Error: ValidationError{Field: field, Message: "must be a valid email address", Key: "validation.email"},
	}
}

// ValidURL accepts absolute http and https URLs.
func ValidURL(field, value string) Rule {
	return Rule{
		Check: func() bool {
			u, err := url.ParseRequestURI(value)
			if err != nil || u.Host == "" {
				return false
			}
			return u.Scheme == "http" || u.Scheme == "https"
		},
		Error: ValidationError{Field: field, Message: "must be a valid URL", Key: "validation.url"},
	}
}

func ValidUUID(field, value string) Rule {
	return Rule{
		Check: func() bool {
			id, err := uuid.Parse(value)
			return err == nil && id != uuid.Nil
		},
		Error: ValidationError{Field: field, Message: "must be a valid UUID", Key: "validation.uuid"},
	}
}

func InList[T comparable](field string, value T, allowed []T) Rule {
	return Rule{
		Check: func() bool { return slices.Contains(allowed, value) },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be one of: %v", allowed),
			Key:     "validation.in_list",
		},
	}
}

func MinNum[T Numeric](field string, value, minimum T) Rule {
	return Rule{
		Check: func() bool { return value >= minimum },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at least %v", minimum),
			Key:     "validation.min",
		},
	}
}

func MaxNum[T Numeric](field string, value, maximum T) Rule {
	return Rule{
		Check: func() bool { return value <= maximum },
		Error: ValidationError{
			Field:   field,
			Message: fmt.Sprintf("must be at most %v", maximum),
			Key:     "validation.max",
		},
	}
}
