package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/deixis/whitelabel/internal/envfile"
	"github.com/deixis/whitelabel/internal/form"
	"github.com/deixis/whitelabel/internal/icon"
	"github.com/deixis/whitelabel/internal/report"
	"github.com/deixis/whitelabel/internal/runner"
	"github.com/deixis/whitelabel/internal/telemetry"
)

type loadEnvResponse struct {
	Success bool              `json:"success"`
	Values  map[string]string `json:"values"`
}

func (s *Server) handleLoadEnv(w http.ResponseWriter, r *http.Request) {
	values, err := envfile.Load(s.opts.EnvFile)
	if err != nil {
		s.log.Warn("load-env failed", "path", s.opts.EnvFile, "error", err)
		writeError(w, http.StatusNotFound, "Unable to read "+s.opts.EnvLabel)
		return
	}
	writeJSON(w, http.StatusOK, loadEnvResponse{Success: true, Values: values})
}

type uploadResponse struct {
	Success        bool   `json:"success"`
	IconPath       string `json:"iconPath"`
	PreviewDataURL string `json:"previewDataUrl"`
}

func (s *Server) handleUploadIcon(w http.ResponseWriter, r *http.Request) {
	if s.opts.Icons == nil {
		writeError(w, http.StatusNotFound, "Icon upload is disabled")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUpload)
	file, hdr, err := r.FormFile("icon")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing icon file")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing icon file")
		return
	}

	up, err := s.opts.Icons.Save(r.Context(), data, hdr.Header.Get("Content-Type"))
	telemetry.RecordIconUpload(r.Context(), len(data), err)
	switch {
	case errors.Is(err, icon.ErrMissing):
		writeError(w, http.StatusBadRequest, "Missing icon file")
		return
	case errors.Is(err, icon.ErrNotPNG):
		writeError(w, http.StatusBadRequest, "Icon must be a PNG file")
		return
	case err != nil:
		s.log.Error("icon upload failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to upload icon")
		return
	}
	writeJSON(w, http.StatusOK, uploadResponse{
		Success:        true,
		IconPath:       up.Path,
		PreviewDataURL: up.PreviewDataURL,
	})
}

// PreviewRequest is the form as the page currently holds it. ColorText and
// ColorPicker carry raw color edits that are folded in after Values.
type PreviewRequest struct {
	Values      map[string]string `json:"values"`
	ColorText   map[string]string `json:"colorText,omitempty"`
	ColorPicker map[string]string `json:"colorPicker,omitempty"`
}

// PreviewResponse is the derived form state.
type PreviewResponse struct {
	EnvContent  string            `json:"envContent"`
	Values      map[string]string `json:"values"`
	ColorInputs map[string]string `json:"colorInputs"`
	PickerHex   map[string]string `json:"pickerHex"`
	Missing     []string          `json:"missing"`
	Ready       bool              `json:"ready"`
	WhatsApp    *form.ShareLink   `json:"whatsApp,omitempty"`
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid form data")
		return
	}
	writeJSON(w, http.StatusOK, Preview(s.opts.Fields, req))
}

// Preview folds req into a fresh form state and derives everything the
// page shows from it.
func Preview(fields []form.FieldSpec, req PreviewRequest) PreviewResponse {
	st := form.NewState(fields).Apply(req.Values)
	for key, raw := range req.ColorText {
		st = st.WithColorText(key, raw)
	}
	for key, hex := range req.ColorPicker {
		st = st.WithColorPicker(key, hex)
	}
	resp := PreviewResponse{
		EnvContent:  st.EnvContent(),
		Values:      st.Values(),
		ColorInputs: map[string]string{},
		PickerHex:   map[string]string{},
		Missing:     st.MissingRequired(),
	}
	resp.Ready = len(resp.Missing) == 0
	for _, f := range fields {
		if f.IsColor() {
			resp.ColorInputs[f.Key] = st.ColorText(f.Key)
			resp.PickerHex[f.Key] = st.PickerHex(f.Key)
		}
	}
	if link, ok := st.WhatsAppLink(); ok {
		resp.WhatsApp = &link
	}
	return resp
}

type runSummary struct {
	ID         string        `json:"id"`
	Status     report.Status `json:"status"`
	StartedAt  string        `json:"startedAt"`
	DurationMS int64         `json:"durationMs"`
}

type runDetail struct {
	runSummary
	Events []runner.Event `json:"events"`
	Output string         `json:"output"`
}

func summarize(rec *report.RunRecord) runSummary {
	return runSummary{
		ID:         rec.ID,
		Status:     rec.Status(),
		StartedAt:  rec.StartedAt.UTC().Format(time.RFC3339),
		DurationMS: rec.Duration().Milliseconds(),
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	out := []runSummary{}
	if s.opts.Runs != nil {
		for _, rec := range s.opts.Runs.Recent(50) {
			out = append(out, summarize(rec))
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "runs": out})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if s.opts.Runs == nil {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	rec, err := s.opts.Runs.Load(r.PathValue("id"))
	if errors.Is(err, report.ErrNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		s.log.Error("loading run", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to load run")
		return
	}
	writeJSON(w, http.StatusOK, runDetail{
		runSummary: summarize(rec),
		Events:     rec.Events,
		Output:     rec.Output(),
	})
}

func withoutCancel(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}
