package domain

import "strings"

type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderChild  Gender = "child"
	GenderUnisex Gender = "unisex"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderChild, GenderUnisex:
		return true
	default:
		return false
	}
}

// ParseGender reports whether raw is a known gender.
func ParseGender(raw string) (Gender, bool) {
	g := Gender(strings.ToLower(strings.TrimSpace(raw)))
	return g, g.Valid()
}

// NormalizeGender falls back to unisex for anything absent or unrecognized.
func NormalizeGender(raw string) Gender {
	if g, ok := ParseGender(raw); ok {
		return g
	}
	return GenderUnisex
}
