// Package validation checks request parameters before they reach the
// session. Errors map to 400 responses.
package validation

import (
	"errors"
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/kjstillabower/krishi-dashboard/internal/models"
)

// Place name bounds in runes.
const (
	PlaceNameMinLen = 2
	PlaceNameMaxLen = 80
)

// Chat query bounds.
const (
	QueryMaxLen = 500
	TopKMax     = 10
)

var (
	ErrPlaceNameEmpty        = errors.New("place name is required")
	ErrPlaceNameTooShort     = errors.New("place name too short")
	ErrPlaceNameTooLong      = errors.New("place name too long")
	ErrPlaceNameInvalidChars = errors.New("place name contains invalid characters")

	ErrCoordinatesMissing = errors.New("lat and lon are required")
	ErrLatitudeRange      = errors.New("lat must be between -90 and 90")
	ErrLongitudeRange     = errors.New("lon must be between -180 and 180")

	ErrQueryEmpty   = errors.New("query is required")
	ErrQueryTooLong = errors.New("query too long")
	ErrTopKRange    = errors.New("top_k must be between 0 and 10")

	ErrUnknownLanguage = errors.New("unsupported language")
	ErrUnknownPage     = errors.New("unknown page")
	ErrUnknownMode     = errors.New("mode must be online or offline")
)

// PlaceName trims input and checks it is a place name: letters of any
// script (with their combining marks), digits, space, comma and hyphen.
func PlaceName(input string) (string, error) {
	s := strings.TrimSpace(input)
	r := []rune(s)
	switch n := len(r); {
	case n == 0:
		return "", ErrPlaceNameEmpty
	case n < PlaceNameMinLen:
		return "", ErrPlaceNameTooShort
	case n > PlaceNameMaxLen:
		return "", ErrPlaceNameTooLong
	}
	for _, c := range r {
		if !isPlaceNameRune(c) {
			return "", ErrPlaceNameInvalidChars
		}
	}
	return s, nil
}

func isPlaceNameRune(r rune) bool {
	if unicode.IsLetter(r) || unicode.IsMark(r) || unicode.IsNumber(r) {
		return true
	}
	switch r {
	case ' ', ',', '-':
		return true
	}
	return false
}

// Coordinates parses and range-checks a lat/lon pair.
func Coordinates(latStr, lonStr string) (lat, lon float64, err error) {
	latStr, lonStr = strings.TrimSpace(latStr), strings.TrimSpace(lonStr)
	if latStr == "" || lonStr == "" {
		return 0, 0, ErrCoordinatesMissing
	}
	if lat, err = strconv.ParseFloat(latStr, 64); err != nil || math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, ErrLatitudeRange
	}
	if lon, err = strconv.ParseFloat(lonStr, 64); err != nil || math.IsNaN(lon) || lon < -180 || lon > 180 {
		return 0, 0, ErrLongitudeRange
	}
	return lat, lon, nil
}

// Query trims a chat query and checks its length.
func Query(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", ErrQueryEmpty
	}
	if len([]rune(s)) > QueryMaxLen {
		return "", ErrQueryTooLong
	}
	return s, nil
}

// TopK checks a requested result count. 0 selects the default.
func TopK(k int) (int, error) {
	if k < 0 || k > TopKMax {
		return 0, ErrTopKRange
	}
	return k, nil
}

// Language parses a display language code.
func Language(code string) (models.Language, error) {
	lang, ok := models.ParseLanguage(strings.ToLower(strings.TrimSpace(code)))
	if !ok {
		return "", ErrUnknownLanguage
	}
	return lang, nil
}

// Page parses a page name.
func Page(name string) (models.Page, error) {
	p, ok := models.ParsePage(strings.TrimSpace(name))
	if !ok {
		return "", ErrUnknownPage
	}
	return p, nil
}

// Mode parses a connectivity mode.
func Mode(name string) (models.Mode, error) {
	m, ok := models.ParseMode(strings.ToLower(strings.TrimSpace(name)))
	if !ok {
		return "", ErrUnknownMode
	}
	return m, nil
}
