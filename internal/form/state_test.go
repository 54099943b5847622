package form

import (
	"strings"
	"testing"
)

func TestNewState_Defaults(t *testing.T) {
	s := NewState(DefaultFields)
	if got := s.Value("PRIMARY_COLOR"); got != "0xFFE9465F" {
		t.Errorf("PRIMARY_COLOR = %q, want %q", got, "0xFFE9465F")
	}
	if got := s.ColorText("SECONDARY_COLOR"); got != "#FFC27A" {
		t.Errorf("ColorText(SECONDARY_COLOR) = %q, want %q", got, "#FFC27A")
	}
	if s.HasRequiredValues() {
		t.Error("HasRequiredValues = true on a fresh form, want false")
	}
}

func TestState_EnvContentOrder(t *testing.T) {
	s := NewState(DefaultFields).With(KeyAppName, "News Flash")
	lines := strings.Split(s.EnvContent(), "\n")
	if len(lines) != len(DefaultFields) {
		t.Fatalf("lines = %d, want %d", len(lines), len(DefaultFields))
	}
	if lines[0] != `APP_NAME="News Flash"` {
		t.Errorf("line 0 = %q, want %q", lines[0], `APP_NAME="News Flash"`)
	}
	if lines[1] != "PRIMARY_COLOR=0xFFE9465F" {
		t.Errorf("line 1 = %q", lines[1])
	}
	if lines[len(lines)-1] != "WHITELABEL_WA_NUMBER=" {
		t.Errorf("last line = %q", lines[len(lines)-1])
	}
}

func TestState_Immutable(t *testing.T) {
	s := NewState(DefaultFields)
	_ = s.With(KeyAppName, "changed")
	_ = s.WithColorText("PRIMARY_COLOR", "#000000")
	if s.Value(KeyAppName) != "" {
		t.Errorf("original APP_NAME = %q, want unchanged", s.Value(KeyAppName))
	}
	if s.Value("PRIMARY_COLOR") != "0xFFE9465F" {
		t.Errorf("original PRIMARY_COLOR = %q, want unchanged", s.Value("PRIMARY_COLOR"))
	}
}

func TestState_WithColorText(t *testing.T) {
	s := NewState(DefaultFields).With("PRIMARY_COLOR", "0x80E9465F")

	partial := s.WithColorText("PRIMARY_COLOR", "12a")
	if got := partial.ColorText("PRIMARY_COLOR"); got != "#12A" {
		t.Errorf("ColorText = %q, want %q", got, "#12A")
	}
	if got := partial.Value("PRIMARY_COLOR"); got != "0x80E9465F" {
		t.Errorf("partial input changed value to %q", got)
	}
	if got := partial.PickerHex("PRIMARY_COLOR"); got != "#E9465F" {
		t.Errorf("PickerHex = %q, want stored color %q", got, "#E9465F")
	}

	complete := partial.WithColorText("PRIMARY_COLOR", "12ab56")
	if got := complete.Value("PRIMARY_COLOR"); got != "0x8012AB56" {
		t.Errorf("value = %q, want alpha preserved %q", got, "0x8012AB56")
	}

	cleared := complete.WithColorText("PRIMARY_COLOR", "  ")
	if got := cleared.Value("PRIMARY_COLOR"); got != "" {
		t.Errorf("cleared value = %q, want empty", got)
	}
}

func TestState_WithColorPicker(t *testing.T) {
	s := NewState(DefaultFields).WithColorPicker("SECONDARY_COLOR", "#a1b2c3")
	if got := s.Value("SECONDARY_COLOR"); got != "0xFFA1B2C3" {
		t.Errorf("value = %q, want %q", got, "0xFFA1B2C3")
	}
	if got := s.ColorText("SECONDARY_COLOR"); got != "#A1B2C3" {
		t.Errorf("ColorText = %q, want %q", got, "#A1B2C3")
	}

	for _, bad := range []string{"", "#abc", "a1b2c3", "#zzzzzz", "#A1B2C3FF"} {
		got := s.WithColorPicker("SECONDARY_COLOR", bad)
		if got.ColorText("SECONDARY_COLOR") != "#A1B2C3" || got.Value("SECONDARY_COLOR") != "0xFFA1B2C3" {
			t.Errorf("WithColorPicker(%q) changed state to %q / %q", bad, got.ColorText("SECONDARY_COLOR"), got.Value("SECONDARY_COLOR"))
		}
	}
}

func TestState_ApplyOnlyCatalogued(t *testing.T) {
	s := NewState(DefaultFields).Apply(map[string]string{
		KeyAppName:      "Loaded",
		"PRIMARY_COLOR": "0x11223344",
		"UNRELATED":     "x",
	})
	if s.Value(KeyAppName) != "Loaded" {
		t.Errorf("APP_NAME = %q, want %q", s.Value(KeyAppName), "Loaded")
	}
	if s.ColorText("PRIMARY_COLOR") != "#223344" {
		t.Errorf("ColorText = %q, want %q", s.ColorText("PRIMARY_COLOR"), "#223344")
	}
	if _, ok := s.Values()["UNRELATED"]; ok {
		t.Error("unknown key was applied")
	}
	if s.Value("SECONDARY_COLOR") != "0xFFFFC27A" {
		t.Errorf("untouched SECONDARY_COLOR = %q", s.Value("SECONDARY_COLOR"))
	}
}

func TestState_MissingRequired(t *testing.T) {
	s := NewState(DefaultFields).Apply(map[string]string{
		KeyAppName:         "App",
		"NEWS_API_KEY":     "key",
		"PACKAGE_NAME":     "com.example.app",
		"FIREBASE_PROJECT": "   ",
	})
	missing := s.MissingRequired()
	if len(missing) != 1 || missing[0] != "FIREBASE_PROJECT" {
		t.Errorf("MissingRequired = %v, want [FIREBASE_PROJECT]", missing)
	}
	if !s.With("FIREBASE_PROJECT", "proj").HasRequiredValues() {
		t.Error("HasRequiredValues = false, want true")
	}
}

func TestState_WhatsAppLink(t *testing.T) {
	s := NewState(DefaultFields).With(KeyWANumber, " +62 812-3456 ")
	link, ok := s.WhatsAppLink()
	if !ok {
		t.Fatal("WhatsAppLink not available")
	}
	want := "https://wa.me/628123456?text=Hi%21%20The%20white-label%20assets%20for%20our%20app%20are%20ready."
	if link.URL != want {
		t.Errorf("URL = %q, want %q", link.URL, want)
	}
	if link.DisplayNumber != "+62 812-3456" {
		t.Errorf("DisplayNumber = %q", link.DisplayNumber)
	}

	if _, ok := s.With(KeyWANumber, "n/a").WhatsAppLink(); ok {
		t.Error("WhatsAppLink available without digits")
	}
}

func TestFieldSpec_Display(t *testing.T) {
	primary, ok := Lookup(DefaultFields, "PRIMARY_COLOR")
	if !ok {
		t.Fatal("PRIMARY_COLOR not catalogued")
	}
	if got := primary.DisplayPlaceholder(); got != "#E9465F" {
		t.Errorf("DisplayPlaceholder = %q, want %q", got, "#E9465F")
	}
	if got := primary.HelperText(); got != "" {
		t.Errorf("color HelperText = %q, want empty", got)
	}

	pkg, _ := Lookup(DefaultFields, "PACKAGE_NAME")
	if got := pkg.HelperText(); got != "PACKAGE_NAME" {
		t.Errorf("HelperText = %q, want the key", got)
	}
	if (FieldSpec{Kind: Color}).DisplayPlaceholder() != "#RRGGBB" {
		t.Error("color field without token placeholder should show #RRGGBB")
	}
}
