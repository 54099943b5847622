package mcp

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/whitelabel/internal/color"
	"github.com/deixis/whitelabel/internal/envfile"
	"github.com/deixis/whitelabel/internal/form"
)

type fieldsParams struct{}

func (h *handler) fieldsHandler(ctx context.Context, req *mcp.CallToolRequest, _ fieldsParams) (*mcp.CallToolResult, any, error) {
	var b strings.Builder
	for _, f := range h.current().Fields {
		fmt.Fprintf(&b, "%s", f.Key)
		if f.Required {
			b.WriteString(" (required)")
		}
		if f.IsColor() {
			b.WriteString(" [color]")
		}
		fmt.Fprintf(&b, ": %s", f.Label)
		if f.Default != "" {
			fmt.Fprintf(&b, " (default %s)", f.Default)
		}
		b.WriteString("\n")
	}
	return textResult(b.String())
}

type renderParams struct {
	Values map[string]string `json:"values" jsonschema:"env values keyed by env key (e.g. APP_NAME); colors as 0xAARRGGBB or #RRGGBB"`
}

func (h *handler) renderHandler(ctx context.Context, req *mcp.CallToolRequest, params renderParams) (*mcp.CallToolResult, any, error) {
	st := stateFrom(h.current().Fields, params.Values)

	var b strings.Builder
	b.WriteString(st.EnvContent())
	b.WriteString("\n")
	if missing := st.MissingRequired(); len(missing) > 0 {
		fmt.Fprintf(&b, "\nMissing required: %s\n", strings.Join(missing, ", "))
	} else {
		b.WriteString("\nAll required values present.\n")
	}
	var unknown []string
	for k := range params.Values {
		if _, ok := form.Lookup(st.Fields(), k); !ok {
			unknown = append(unknown, k)
		}
	}
	if len(unknown) > 0 {
		slices.Sort(unknown)
		fmt.Fprintf(&b, "Ignored unknown keys: %s\n", strings.Join(unknown, ", "))
	}
	return textResult(b.String())
}

// stateFrom builds a form state from tool input. #RRGGBB values for color
// fields go through the color text path so the default alpha survives.
func stateFrom(fields []form.FieldSpec, values map[string]string) form.State {
	st := form.NewState(fields)
	plain := make(map[string]string, len(values))
	for k, v := range values {
		f, ok := form.Lookup(fields, k)
		if ok && f.IsColor() && !color.IsToken(v) {
			st = st.WithColorText(k, v)
			continue
		}
		plain[k] = v
	}
	return st.Apply(plain)
}

type loadEnvParams struct{}

func (h *handler) loadEnvHandler(ctx context.Context, req *mcp.CallToolRequest, _ loadEnvParams) (*mcp.CallToolResult, any, error) {
	p := h.current()
	values, err := envfile.Load(p.EnvFile)
	if err != nil {
		return errorResult(fmt.Sprintf("Unable to read %s: %v", p.EnvLabel, err))
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	pairs := make([]envfile.Pair, 0, len(keys))
	for _, k := range keys {
		pairs = append(pairs, envfile.Pair{Key: k, Value: values[k]})
	}
	return textResult(fmt.Sprintf("Loaded %d values from %s:\n%s\n", len(pairs), p.EnvLabel, envfile.SerializePairs(pairs)))
}
