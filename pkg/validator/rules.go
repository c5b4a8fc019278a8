package validator

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// emailRegex is intentionally loose: something@something.tld, no spaces.
// The auth provider performs the authoritative check.
var emailRegex = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func RequiredString(field, value string) Rule {
	return Rule{
		Check: func() bool { return strings.TrimSpace(value) != "" },
		Error: ValidationError{
			Field:          field,
			Message:        "field is required",
			TranslationKey: "validation.required",
		},
	}
}

func MinLenString(field, value string, min int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) >= min },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at least %d characters long", min),
			TranslationKey: "validation.min_length",
		},
	}
}

func MaxLenString(field, value string, max int) Rule {
	return Rule{
		Check: func() bool { return utf8.RuneCountInString(value) <= max },
		Error: ValidationError{
			Field:          field,
			Message:        fmt.Sprintf("must be at most %d characters long", max),
			TranslationKey: "validation.max_length",
		},
	}
}

func ValidEmail(field, value string) Rule {
	return Rule{
		Check: func() bool { return emailRegex.MatchString(strings.TrimSpace(value)) },
		Error: ValidationError{
			Field:          field,
			Message:        "must be a valid email address",
			TranslationKey: "validation.email",
		},
	}
}
