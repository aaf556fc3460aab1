package domain

import (
	"strings"
	"unicode"
)

// MaxDestinationLen bounds destination names; nothing legitimate is longer.
const MaxDestinationLen = 100

// ValidateTripRequest checks a TripRequest before it enters the pipeline.
// The form layer validates first, but the engine re-checks at its boundary.
func ValidateTripRequest(req TripRequest) error {
	if err := ValidateDestination(req.Destination); err != nil {
		return err
	}
	if req.Origin != "" {
		if err := validatePlace("origin", req.Origin); err != nil {
			return err
		}
	}
	for _, interest := range req.Interests {
		if containsControl(interest) {
			return NewValidationError("interests", interest, ErrSuspiciousInput)
		}
	}
	return nil
}

// ValidateDestination checks a destination string.
func ValidateDestination(dest string) error {
	dest = strings.TrimSpace(dest)
	if dest == "" {
		return NewValidationError("destination", dest, ErrInvalidDestination)
	}
	if len(dest) > MaxDestinationLen {
		return NewValidationError("destination", dest, ErrDestinationTooLong)
	}
	return validatePlace("destination", dest)
}

func validatePlace(field, value string) error {
	if containsControl(value) {
		return NewValidationError(field, value, ErrSuspiciousInput)
	}
	return nil
}

func containsControl(s string) bool {
	for _, r := range s {
		if unicode.IsControl(r) && r != '\t' {
			return true
		}
	}
	return false
}
