package validation

import (
	"errors"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

const (
	MaxCaptionLength  = 1000
	MaxCategoryLength = 100
)

// NormalizeText trims surrounding whitespace and converts to NFC, so visually
// identical categories compare equal.
func NormalizeText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}

// ValidateCaption validates an image caption (already normalized)
func ValidateCaption(caption string) error {
	if !utf8.ValidString(caption) {
		return errors.New("caption is not valid UTF-8")
	}

	if utf8.RuneCountInString(caption) > MaxCaptionLength {
		return errors.New("caption is too long (max 1000 characters)")
	}

	return nil
}

// ValidateCategory validates an image category (already normalized).
// "All" is reserved: listings treat it as "no filter".
func ValidateCategory(category string) error {
	if !utf8.ValidString(category) {
		return errors.New("category is not valid UTF-8")
	}

	if utf8.RuneCountInString(category) > MaxCategoryLength {
		return errors.New("category is too long (max 100 characters)")
	}

	if strings.EqualFold(category, "all") {
		return errors.New("category \"All\" is reserved")
	}

	return nil
}
