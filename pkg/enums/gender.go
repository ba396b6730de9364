package enums

import (
	"fmt"
	"strings"
)

// Gender is the audience an item is listed for.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderBoth   Gender = "both"
)

var validGenders = []Gender{
	GenderMale,
	GenderFemale,
	GenderBoth,
}

// String implements fmt.Stringer.
func (g Gender) String() string {
	return string(g)
}

// IsValid reports whether the value is a known Gender.
func (g Gender) IsValid() bool {
	for _, candidate := range validGenders {
		if candidate == g {
			return true
		}
	}
	return false
}

// ParseGender converts raw input into a Gender, case-insensitively.
func ParseGender(value string) (Gender, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, candidate := range validGenders {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid gender %q", value)
}
