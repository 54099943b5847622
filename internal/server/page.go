package server

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"

	"github.com/deixis/whitelabel/internal/form"
)

const defaultIntro = "Enter the branding and infrastructure details for a client. " +
	"The generated content can be saved as a `.env` file and passed to `whitelabel.sh`."

type pageField struct {
	form.FieldSpec
	Value     string
	ColorText string
	PickerHex string
	Hint      string // placeholder as displayed
	Note      string // helper line under the input
	IsIcon    bool
}

type pageData struct {
	Intro     template.HTML
	Fields    []pageField
	Preview   PreviewResponse
	EnvLabel  string
	IconLabel string
	IconsOn   bool
	Bootstrap template.JS
}

// renderMarkdown converts src to HTML. Raw HTML in src is not passed
// through.
func renderMarkdown(src string) template.HTML {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithParserOptions(parser.WithAutoHeadingID()),
	)
	var buf bytes.Buffer
	if err := md.Convert([]byte(src), &buf); err != nil {
		return ""
	}
	return template.HTML(buf.String())
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	st := form.NewState(s.opts.Fields)
	fields := make([]pageField, 0, len(s.opts.Fields))
	for _, f := range s.opts.Fields {
		pf := pageField{
			FieldSpec: f,
			Value:     st.Value(f.Key),
			Hint:      f.DisplayPlaceholder(),
			Note:      f.HelperText(),
			IsIcon:    f.Key == form.KeyAppIconPath,
		}
		if f.IsColor() {
			pf.ColorText = st.ColorText(f.Key)
			pf.PickerHex = st.PickerHex(f.Key)
		}
		fields = append(fields, pf)
	}

	intro := s.opts.Intro
	if intro == "" {
		intro = defaultIntro
	}
	boot, _ := json.Marshal(map[string]any{
		"fields":    s.opts.Fields,
		"envLabel":  s.opts.EnvLabel,
		"iconLabel": s.opts.IconLabel,
	})
	data := pageData{
		Intro:     renderMarkdown(intro),
		Fields:    fields,
		Preview:   Preview(s.opts.Fields, PreviewRequest{Values: st.Values()}),
		EnvLabel:  s.opts.EnvLabel,
		IconLabel: s.opts.IconLabel,
		IconsOn:   s.opts.Icons != nil,
		Bootstrap: template.JS(boot),
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.log.Error("rendering page", "error", err)
		http.Error(w, "failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(v)
}
