package form

import (
	"fmt"
	"maps"
	"net/url"
	"regexp"
	"strings"

	"github.com/deixis/whitelabel/internal/color"
	"github.com/deixis/whitelabel/internal/envfile"
)

// State is a snapshot of the form. Every mutation returns a new State;
// the receiver is never modified.
type State struct {
	fields      []FieldSpec
	values      map[string]string
	colorInputs map[string]string // text typed into color fields, possibly partial
}

// NewState returns the initial state: defaults applied, color inputs
// derived from the default tokens.
func NewState(fields []FieldSpec) State {
	s := State{
		fields:      fields,
		values:      make(map[string]string, len(fields)),
		colorInputs: make(map[string]string),
	}
	for _, f := range fields {
		s.values[f.Key] = f.Default
		if f.IsColor() {
			if d := color.TokenToDisplay(f.Default); d != "" {
				s.colorInputs[f.Key] = d
			}
		}
	}
	return s
}

// Fields returns the catalogue the state was built from.
func (s State) Fields() []FieldSpec { return s.fields }

// Value returns the stored env value for key.
func (s State) Value(key string) string { return s.values[key] }

// Values returns a copy of all stored values.
func (s State) Values() map[string]string { return maps.Clone(s.values) }

// ColorText returns what the hex text input of a color field shows.
func (s State) ColorText(key string) string {
	if v, ok := s.colorInputs[key]; ok {
		return v
	}
	return color.TokenToDisplay(s.values[key])
}

// PickerHex returns the value for the native color picker of key: the
// typed text when complete, else the stored token.
func (s State) PickerHex(key string) string {
	if text := s.ColorText(key); color.IsCompleteHex(text) {
		return text
	}
	return color.PickerHex(s.values[key])
}

func (s State) clone() State {
	return State{
		fields:      s.fields,
		values:      maps.Clone(s.values),
		colorInputs: maps.Clone(s.colorInputs),
	}
}

// With sets the raw value of key.
func (s State) With(key, value string) State {
	next := s.clone()
	next.values[key] = value
	return next
}

// WithColorText records hand-typed hex text for a color field. The stored
// token changes only when the text is cleared or forms a complete #RRGGBB.
func (s State) WithColorText(key, raw string) State {
	next := s.clone()
	sanitized := color.SanitizeInput(raw)
	next.colorInputs[key] = sanitized
	switch {
	case sanitized == "":
		next.values[key] = ""
	case color.IsCompleteHex(sanitized):
		next.values[key] = color.DisplayToToken(sanitized, s.values[key])
	}
	return next
}

// WithColorPicker applies a value chosen in a native color picker. Anything
// other than #RRGGBB leaves the state unchanged.
func (s State) WithColorPicker(key, hex string) State {
	hex = strings.ToUpper(hex)
	if !color.IsCompleteHex(hex) {
		return s
	}
	next := s.clone()
	next.colorInputs[key] = hex
	next.values[key] = color.DisplayToToken(hex, s.values[key])
	return next
}

// Apply copies values for catalogued keys present in loaded. Unknown keys
// are ignored; color inputs are refreshed for the color fields touched.
func (s State) Apply(loaded map[string]string) State {
	next := s.clone()
	for _, f := range s.fields {
		v, ok := loaded[f.Key]
		if !ok {
			continue
		}
		next.values[f.Key] = v
		if f.IsColor() {
			next.colorInputs[f.Key] = color.TokenToDisplay(v)
		}
	}
	return next
}

// EnvContent serializes the state in catalogue order.
func (s State) EnvContent() string {
	return envfile.Serialize(s.values, Keys(s.fields))
}

// HasRequiredValues reports whether every required field is non-blank.
func (s State) HasRequiredValues() bool {
	return len(s.MissingRequired()) == 0
}

// MissingRequired lists the keys of required fields that are blank.
func (s State) MissingRequired() []string {
	var missing []string
	for _, f := range s.fields {
		if f.Required && strings.TrimSpace(s.values[f.Key]) == "" {
			missing = append(missing, f.Key)
		}
	}
	return missing
}

// ShareLink is a wa.me link announcing the finished build.
type ShareLink struct {
	URL           string `json:"url"`
	DisplayNumber string `json:"displayNumber"`
}

var nonDigitRe = regexp.MustCompile(`[^0-9]`)

// WhatsAppLink builds the share link from the WhatsApp number field, or
// returns false when the field holds no digits.
func (s State) WhatsAppLink() (ShareLink, bool) {
	raw := strings.TrimSpace(s.values[KeyWANumber])
	if raw == "" {
		return ShareLink{}, false
	}
	digits := nonDigitRe.ReplaceAllString(raw, "")
	if digits == "" {
		return ShareLink{}, false
	}
	appName := strings.TrimSpace(s.values[KeyAppName])
	if appName == "" {
		appName = "our app"
	}
	message := fmt.Sprintf("Hi! The white-label assets for %s are ready.", appName)
	return ShareLink{
		URL:           "https://wa.me/" + digits + "?text=" + strings.ReplaceAll(url.QueryEscape(message), "+", "%20"),
		DisplayNumber: raw,
	}, true
}
