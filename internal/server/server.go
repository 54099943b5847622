// Package server serves the whitelabel form and its JSON/ndjson API.
package server

import (
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"

	"github.com/Masterminds/sprig/v3"

	"github.com/deixis/whitelabel/internal/form"
	"github.com/deixis/whitelabel/internal/icon"
	"github.com/deixis/whitelabel/internal/report"
	"github.com/deixis/whitelabel/internal/runner"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

const (
	defaultMaxUpload = 10 << 20
	maxJSONBody      = 1 << 20
)

// Options configures a Server.
type Options struct {
	Runner    *runner.Runner
	Fields    []form.FieldSpec // defaults to form.DefaultFields
	EnvFile   string           // absolute path read by load-env
	EnvLabel  string           // how the env file is named in messages, e.g. "../.env"
	Icons     *icon.Uploader
	IconLabel string           // how the icon location is named in messages
	Runs      *report.LRUStore // optional transcript store
	Intro     string           // markdown shown above the form
	MaxUpload int64            // multipart size cap in bytes
	Logger    *slog.Logger
}

// Server handles the form page and API requests.
type Server struct {
	opts Options
	page *template.Template
	log  *slog.Logger
}

// New parses the page template and returns a Server.
func New(opts Options) (*Server, error) {
	if opts.Runner == nil {
		return nil, fmt.Errorf("server: runner is required")
	}
	if opts.Fields == nil {
		opts.Fields = form.DefaultFields
	}
	if opts.EnvLabel == "" {
		opts.EnvLabel = opts.EnvFile
	}
	if opts.MaxUpload <= 0 {
		opts.MaxUpload = defaultMaxUpload
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	page, err := template.New("index.html.tmpl").
		Funcs(sprig.FuncMap()).
		ParseFS(templateFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing page template: %w", err)
	}
	return &Server{opts: opts, page: page, log: log}, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	static, _ := fs.Sub(staticFS, "static")
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(static)))
	mux.HandleFunc("POST /api/run-whitelabel", s.handleRun)
	mux.HandleFunc("GET /api/load-env", s.handleLoadEnv)
	mux.HandleFunc("POST /api/upload-icon", s.handleUploadIcon)
	mux.HandleFunc("POST /api/preview", s.handlePreview)
	mux.HandleFunc("GET /api/runs", s.handleListRuns)
	mux.HandleFunc("GET /api/runs/{id}", s.handleGetRun)
	return mux
}

type errorBody struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Success: false, Error: msg})
}
