// Package form describes the whitelabel form: the static field catalogue
// and an immutable State with the derivations the page and CLI render.
package form

import "github.com/deixis/whitelabel/internal/color"

// Kind selects how a field is edited.
type Kind string

const (
	Plain Kind = "plain"
	Color Kind = "color"
)

// FieldSpec describes one env key collected by the form.
type FieldSpec struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Placeholder string `json:"placeholder,omitempty"`
	Helper      string `json:"helper,omitempty"`
	Default     string `json:"default,omitempty"`
	Required    bool   `json:"required,omitempty"`
	Kind        Kind   `json:"kind"`
}

// IsColor reports whether the field holds a 0xAARRGGBB token.
func (f FieldSpec) IsColor() bool { return f.Kind == Color }

// HelperText is the hint shown under the input. Plain fields without an
// explicit helper show their env key.
func (f FieldSpec) HelperText() string {
	if f.Helper != "" {
		return f.Helper
	}
	if f.IsColor() {
		return ""
	}
	return f.Key
}

// DisplayPlaceholder is the placeholder shown in the text input. Color
// fields show the #RRGGBB form of their placeholder token.
func (f FieldSpec) DisplayPlaceholder() string {
	if !f.IsColor() {
		return f.Placeholder
	}
	if d := color.TokenToDisplay(f.Placeholder); d != "" {
		return d
	}
	return "#RRGGBB"
}

// Env keys with behaviour outside of plain serialization.
const (
	KeyAppName     = "APP_NAME"
	KeyAppIconPath = "APP_ICON_PATH"
	KeyWANumber    = "WHITELABEL_WA_NUMBER"
)

// DefaultFields is the catalogue in serialization order.
var DefaultFields = []FieldSpec{
	{Key: KeyAppName, Label: "App Name", Placeholder: "News Flash", Required: true, Kind: Plain},
	{Key: "PRIMARY_COLOR", Label: "Primary Color", Placeholder: "0xFFE9465F", Default: "0xFFE9465F", Kind: Color},
	{Key: "SECONDARY_COLOR", Label: "Secondary Color", Placeholder: "0xFFFFC27A", Default: "0xFFFFC27A", Kind: Color},
	{Key: "NEWS_API_KEY", Label: "News API Key", Placeholder: "e5b8d7516ad4439595ce42c4ce8477d3", Required: true, Kind: Plain},
	{Key: "NEWS_API_BASE_URL", Label: "News API Base URL", Placeholder: "https://newsapi.org/v2", Default: "https://newsapi.org/v2", Kind: Plain},
	{Key: "PACKAGE_NAME", Label: "Package Name", Placeholder: "com.example.app", Required: true, Kind: Plain},
	{Key: "SEARCH_PAGE_LOTTIE_ANIMATION", Label: "Search Animation URL", Placeholder: "https://lottie.host/...", Kind: Plain},
	{Key: "EMPTY_NEWS_ANIMATION", Label: "Empty State Animation URL", Placeholder: "https://lottie.host/...", Kind: Plain},
	{Key: "ERROR_ANIMATION", Label: "Error Animation URL", Placeholder: "https://lottie.host/...", Kind: Plain},
	{Key: "COMING_SOON_ANIMATION", Label: "Coming Soon Animation URL", Placeholder: "https://lottie.host/...", Kind: Plain},
	{Key: KeyAppIconPath, Label: "App Icon Path or URL", Placeholder: "../assets/icon/icon.png", Kind: Plain},
	{Key: "FIREBASE_PROJECT", Label: "Firebase Project ID", Placeholder: "project-id", Required: true, Kind: Plain},
	{Key: "DROPBOX_API_KEY", Label: "Dropbox API Key", Helper: "Optional", Kind: Plain},
	{Key: KeyWANumber, Label: "WhatsApp Number", Placeholder: "+628123456789", Helper: "Optional, include country code", Kind: Plain},
}

// Keys returns the env keys of fields in order.
func Keys(fields []FieldSpec) []string {
	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = f.Key
	}
	return keys
}

// Lookup finds the field with key.
func Lookup(fields []FieldSpec, key string) (FieldSpec, bool) {
	for _, f := range fields {
		if f.Key == key {
			return f, true
		}
	}
	return FieldSpec{}, false
}
