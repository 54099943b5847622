package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/huh"

	"github.com/deixis/whitelabel/internal/color"
	"github.com/deixis/whitelabel/internal/form"
)

// Input binds one catalogue field to the text the user types.
type Input struct {
	Field form.FieldSpec
	Value *string
}

const fieldsPerGroup = 5

var runInputs = func(title string, inputs []Input) error {
	var groups []*huh.Group
	for start := 0; start < len(inputs); start += fieldsPerGroup {
		end := min(start+fieldsPerGroup, len(inputs))
		fields := make([]huh.Field, 0, end-start)
		for _, in := range inputs[start:end] {
			f := in.Field
			field := huh.NewInput().
				Title(f.Label).
				Description(f.HelperText()).
				Placeholder(f.DisplayPlaceholder()).
				Validate(func(v string) error { return validate(f, v) }).
				Value(in.Value)
			fields = append(fields, field)
		}
		groups = append(groups, huh.NewGroup(fields...))
	}
	if len(groups) > 0 {
		groups[0].Title(title)
	}
	return huh.NewForm(groups...).Run()
}

// validate checks presence of required fields and the shape of color input.
func validate(f form.FieldSpec, v string) error {
	if f.Required && strings.TrimSpace(v) == "" {
		return errors.New(f.Label + " is required")
	}
	if f.IsColor() {
		s := color.SanitizeInput(v)
		if s != "" && !color.IsCompleteHex(s) {
			return errors.New("enter a color as #RRGGBB")
		}
	}
	return nil
}

// Prompt asks for every field of s, prefilled with its current values, and
// returns the updated state.
func Prompt(title string, s form.State) (form.State, error) {
	fields := s.Fields()
	values := make([]string, len(fields))
	inputs := make([]Input, len(fields))
	for i, f := range fields {
		if f.IsColor() {
			values[i] = s.ColorText(f.Key)
		} else {
			values[i] = s.Value(f.Key)
		}
		inputs[i] = Input{Field: f, Value: &values[i]}
	}

	if err := runInputs(title, inputs); err != nil {
		return s, fmt.Errorf("prompt form: %w", err)
	}

	next := s
	for i, f := range fields {
		if f.IsColor() {
			next = next.WithColorText(f.Key, values[i])
			continue
		}
		next = next.With(f.Key, values[i])
	}
	return next, nil
}
