package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/otherjamesbrown/focusflow/pkg/analysis"
	"github.com/otherjamesbrown/focusflow/pkg/db"
	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
	"github.com/otherjamesbrown/focusflow/pkg/ingest/meeting"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
)

// Multipart field names accepted by POST /api/analyze.
const (
	FieldAgenda     = "agenda"
	FieldAudio      = "audio"
	FieldSubtitles  = "subtitles"
	FieldText       = "text"
	FieldTranscript = "transcript"
	FieldMode       = "mode"
	FieldTitle      = "title"
)

// AnalyzeResponse is the body returned by POST /api/analyze.
type AnalyzeResponse struct {
	ID string `json:"id"`
	// ReportURL is set when the report was stored.
	ReportURL string           `json:"reportUrl,omitempty"`
	Report    *analysis.Report `json:"report"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Code      string `json:"code,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// writeAnalysisError maps analysis failures onto HTTP statuses.
func writeAnalysisError(w http.ResponseWriter, err error) {
	var ae *fferrors.AnalysisError
	switch {
	case fferrors.IsValidation(err):
		writeError(w, http.StatusBadRequest, err)
	case errors.As(err, &ae):
		status := http.StatusBadGateway
		switch {
		case ae.Code == fferrors.ErrTimeout:
			status = http.StatusGatewayTimeout
		case fferrors.IsRetryable(ae.Code):
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, errorResponse{
			Error:     err.Error(),
			Code:      string(ae.Code),
			Retryable: fferrors.IsRetryable(ae.Code),
		})
	default:
		writeError(w, http.StatusInternalServerError, err)
	}
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	log := s.logger.WithContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	agendaText, err := formText(r, FieldAgenda)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if strings.TrimSpace(agendaText) == "" {
		writeError(w, http.StatusBadRequest, fferrors.Input(fferrors.ErrEmptyAgenda, "missing %q field", FieldAgenda))
		return
	}

	in, cleanup, err := transcriptInput(r)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}
	defer cleanup()
	if title := strings.TrimSpace(r.FormValue(FieldTitle)); title != "" {
		in.Name = title
	}

	report, err := s.analyzer.Analyze(r.Context(), agendaText, in)
	if err != nil {
		writeAnalysisError(w, err)
		return
	}

	resp := AnalyzeResponse{ID: report.ID, Report: report}
	if s.store != nil {
		if err := s.store.Save(r.Context(), report); err != nil {
			log.Error("Failed to store report", logging.Err(err), logging.F("report_id", report.ID))
		} else {
			resp.ReportURL = "/api/reports/" + report.ID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// transcriptInput builds the transcript from exactly one of the audio,
// subtitles, transcript or text fields. Audio is spooled to a temporary file
// that cleanup removes.
func transcriptInput(r *http.Request) (meeting.TranscriptInput, func(), error) {
	noop := func() {}

	var present []string
	for _, f := range []string{FieldAudio, FieldSubtitles, FieldTranscript, FieldText} {
		if hasField(r, f) {
			present = append(present, f)
		}
	}
	switch len(present) {
	case 0:
		return meeting.TranscriptInput{}, noop, fferrors.Input(fferrors.ErrMissingInput, "one of %q, %q, %q or %q is required", FieldAudio, FieldSubtitles, FieldTranscript, FieldText)
	case 1:
	default:
		return meeting.TranscriptInput{}, noop, fferrors.Input(fferrors.ErrMissingInput, "only one transcript field may be sent, got %s", strings.Join(present, ", "))
	}

	mode, ok := meeting.ParseKind(r.FormValue(FieldMode))
	if !ok {
		return meeting.TranscriptInput{}, noop, fferrors.Input(fferrors.ErrUnsupportedMode, "%q", r.FormValue(FieldMode))
	}

	switch field := present[0]; field {
	case FieldAudio:
		file, header, err := r.FormFile(FieldAudio)
		if err != nil {
			return meeting.TranscriptInput{}, noop, fferrors.Input(fferrors.ErrMissingInput, "reading audio: %v", err)
		}
		defer file.Close()
		path, err := spool(file, header)
		if err != nil {
			return meeting.TranscriptInput{}, noop, err
		}
		return meeting.TranscriptInput{
			Kind:      meeting.KindSpeech,
			Name:      header.Filename,
			AudioPath: path,
		}, func() { os.Remove(path) }, nil
	default:
		data, name, err := formBytes(r, field)
		if err != nil {
			return meeting.TranscriptInput{}, noop, err
		}
		in := meeting.TranscriptInput{Kind: mode, Name: name, Data: data}
		if mode == meeting.KindAuto {
			in.Kind = map[string]meeting.Kind{
				FieldSubtitles:  meeting.KindCue,
				FieldTranscript: meeting.KindSpeech,
				FieldText:       meeting.KindPlain,
			}[field]
		}
		return in, noop, nil
	}
}

func hasField(r *http.Request, name string) bool {
	if r.MultipartForm == nil {
		return false
	}
	if len(r.MultipartForm.File[name]) > 0 {
		return true
	}
	v := r.MultipartForm.Value[name]
	return len(v) > 0 && strings.TrimSpace(v[0]) != ""
}

// formBytes reads a field sent either as a file part or as a plain value.
func formBytes(r *http.Request, name string) ([]byte, string, error) {
	if file, header, err := r.FormFile(name); err == nil {
		defer file.Close()
		data, err := io.ReadAll(file)
		if err != nil {
			return nil, "", fmt.Errorf("reading %s: %w", name, err)
		}
		return data, header.Filename, nil
	}
	return []byte(r.FormValue(name)), "", nil
}

func formText(r *http.Request, name string) (string, error) {
	data, _, err := formBytes(r, name)
	return string(data), err
}

func spool(file multipart.File, header *multipart.FileHeader) (string, error) {
	tmp, err := os.CreateTemp("", "focusflow-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", fmt.Errorf("failed to create upload file: %w", err)
	}
	if _, err := io.Copy(tmp, file); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return tmp.Name(), nil
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("report storage is not configured"))
		return
	}
	report, err := s.store.Get(r.Context(), chi.URLParam(r, "id"))
	if fferrors.IsNotFound(err) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusNotFound, errors.New("report storage is not configured"))
		return
	}
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", v))
			return
		}
		limit = n
	}
	entries, err := s.store.List(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type healthResponse struct {
	Status   string           `json:"status"`
	Database *db.HealthStatus `json:"database,omitempty"`
}

// healthCheckTimeout bounds the database ping behind /healthz.
const healthCheckTimeout = 2 * time.Second

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.pool != nil {
		resp.Database = db.Check(r.Context(), s.pool, healthCheckTimeout)
		if !resp.Database.Healthy {
			resp.Status = "degraded"
			writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
