// Package color converts between the 0xAARRGGBB tokens stored in env files
// and the #RRGGBB strings used by color pickers.
package color

import (
	"regexp"
	"strings"
)

var (
	tokenRe    = regexp.MustCompile(`^0x[0-9A-Fa-f]{8}$`)
	displayRe  = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
	completeRe = regexp.MustCompile(`^#[0-9A-F]{6}$`)
	nonHexRe   = regexp.MustCompile(`[^0-9A-Fa-f]`)
)

const defaultAlpha = "FF"

// Black is shown by a picker when a field holds no valid token.
const Black = "#000000"

// IsToken reports whether s is a well-formed 0xAARRGGBB token.
func IsToken(s string) bool {
	return tokenRe.MatchString(s)
}

// TokenToDisplay returns the #RRGGBB form of token, dropping alpha, or ""
// when token is not a valid color token.
func TokenToDisplay(token string) string {
	if !IsToken(token) {
		return ""
	}
	return "#" + strings.ToUpper(token[len(token)-6:])
}

// PickerHex is TokenToDisplay with a black fallback.
func PickerHex(token string) string {
	if d := TokenToDisplay(token); d != "" {
		return d
	}
	return Black
}

// DisplayToToken converts #RRGGBB to a token, keeping the alpha byte of
// previous when previous is itself a valid token. Input that is not a full
// #RRGGBB value is ignored and previous is returned unchanged.
func DisplayToToken(hexRGB, previous string) string {
	if !displayRe.MatchString(hexRGB) {
		return previous
	}
	alpha := defaultAlpha
	if IsToken(previous) {
		alpha = strings.ToUpper(previous[2:4])
	}
	return "0x" + alpha + strings.ToUpper(hexRGB[1:])
}

// SanitizeInput normalises text typed into a hex field. Blank input
// yields "" (the field was cleared); anything else yields "#" followed by
// at most six uppercase hex digits.
func SanitizeInput(raw string) string {
	v := strings.TrimSpace(raw)
	if v == "" {
		return ""
	}
	v = strings.TrimPrefix(v, "#")
	body := strings.ToUpper(nonHexRe.ReplaceAllString(v, ""))
	if len(body) > 6 {
		body = body[:6]
	}
	return "#" + body
}

// IsCompleteHex reports whether s is a sanitized, complete #RRGGBB value.
func IsCompleteHex(s string) bool {
	return completeRe.MatchString(s)
}
