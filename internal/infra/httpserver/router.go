package httpserver

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	appanalysis "github.com/joshuarebo/insmile-ai/internal/application/analysis"
	appchat "github.com/joshuarebo/insmile-ai/internal/application/chat"
	appplan "github.com/joshuarebo/insmile-ai/internal/application/plan"
	domai "github.com/joshuarebo/insmile-ai/internal/domain/ai"
	domain "github.com/joshuarebo/insmile-ai/internal/domain/analysis"
	plandomain "github.com/joshuarebo/insmile-ai/internal/domain/plan"
	"github.com/joshuarebo/insmile-ai/internal/middleware"
)

type Router struct {
	analysisSvc *appanalysis.Service
	planSvc     *appplan.Service
	chatSvc     *appchat.Service
}

func NewRouter(analysisSvc *appanalysis.Service, planSvc *appplan.Service, chatSvc *appchat.Service, health, metrics http.HandlerFunc) http.Handler {
	r := &Router{analysisSvc: analysisSvc, planSvc: planSvc, chatSvc: chatSvc}
	mux := chi.NewRouter()

	mux.Get("/health", health)
	mux.Get("/livez", middleware.LivenessHandler)
	mux.Get("/readyz", middleware.ReadinessHandler)
	mux.Get("/metrics", metrics)

	mux.Post("/scans/{id}/analyze", r.wrap(r.handleAnalyze))
	mux.Get("/analysis/{jobId}/status", r.wrap(r.handleStatus))
	mux.Get("/analysis/{jobId}", r.wrap(r.handleResult))
	mux.Get("/analysis", r.wrap(r.handleList))
	mux.Post("/treatment-plan", r.wrap(r.handlePlan))
	mux.Post("/chat", r.wrap(r.handleChat))

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (rt *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			writeError(w, err)
		}
	}
}

func writeError(w http.ResponseWriter, err error) {
	var badReq *badRequestError
	switch {
	case errors.As(err, &badReq):
		respondError(w, http.StatusBadRequest, "validation", err.Error())
	case errors.Is(err, domain.ErrJobNotFound):
		respondError(w, http.StatusNotFound, "not_found", "job not found")
	case errors.Is(err, plandomain.ErrNoAnalysis):
		respondError(w, http.StatusNotFound, "no_analysis", "no analysis available for this patient")
	case errors.Is(err, domain.ErrConflict):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, domai.ErrQuotaExceeded):
		respondError(w, http.StatusTooManyRequests, "quota", "ai quota exceeded")
	case errors.Is(err, domai.ErrRejected):
		respondError(w, http.StatusBadGateway, "provider_rejected", err.Error())
	case errors.Is(err, domai.ErrUnavailable):
		respondError(w, http.StatusBadGateway, "provider_unavailable", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "internal", err.Error())
	}
}

// POST /scans/{id}/analyze
// Multipart form with an "image" (or "file") part plus patientId and
// scanType fields, or a JSON body with imageBase64. Responds 202 with the
// job handle; the analysis itself runs in the background.
func (rt *Router) handleAnalyze(w http.ResponseWriter, req *http.Request) error {
	scanID := chi.URLParam(req, "id")
	if err := middleware.ValidateID("scan", scanID); err != nil {
		return badRequest("%v", err)
	}

	upload, err := readScanUpload(w, req)
	if err != nil {
		return err
	}
	if err := middleware.ValidateID("patient", upload.patientID); err != nil {
		return badRequest("%v", err)
	}
	scanType, err := domain.ParseScanType(upload.scanType)
	if err != nil {
		return badRequest("%v", err)
	}
	if err := middleware.ValidateImageSize(len(upload.data)); err != nil {
		return badRequest("%v", err)
	}
	if upload.mimeType == "" || upload.mimeType == "application/octet-stream" {
		upload.mimeType = http.DetectContentType(upload.data)
	}
	if err := middleware.ValidateImageType(upload.mimeType); err != nil {
		return badRequest("%v", err)
	}

	out, err := rt.analysisSvc.Submit(req.Context(), appanalysis.SubmitCommand{
		ScanID:    scanID,
		PatientID: upload.patientID,
		ScanType:  string(scanType),
		Image:     upload.data,
		MimeType:  upload.mimeType,
	})
	if err != nil {
		return err
	}
	return respondJSON(w, http.StatusAccepted, out)
}

type scanUpload struct {
	patientID string
	scanType  string
	data      []byte
	mimeType  string
}

func readScanUpload(w http.ResponseWriter, req *http.Request) (*scanUpload, error) {
	req.Body = http.MaxBytesReader(w, req.Body, middleware.MaxImageBytes+(1<<20))

	if strings.HasPrefix(req.Header.Get("Content-Type"), "application/json") {
		var body struct {
			PatientID   string `json:"patientId"`
			ScanType    string `json:"scanType"`
			ImageBase64 string `json:"imageBase64"`
			MimeType    string `json:"mimeType"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			return nil, badRequest("invalid JSON body: %v", err)
		}
		b64 := body.ImageBase64
		// tolerate a full data URL
		if i := strings.Index(b64, "base64,"); i >= 0 {
			b64 = b64[i+len("base64,"):]
		}
		data, err := base64.StdEncoding.DecodeString(b64)
		if err != nil {
			return nil, badRequest("imageBase64 is not valid base64")
		}
		return &scanUpload{patientID: body.PatientID, scanType: body.ScanType, data: data, mimeType: body.MimeType}, nil
	}

	if err := req.ParseMultipartForm(middleware.MaxImageBytes); err != nil {
		return nil, badRequest("expected multipart form or JSON body: %v", err)
	}
	file, header, err := req.FormFile("image")
	if err != nil {
		file, header, err = req.FormFile("file")
	}
	if err != nil {
		return nil, badRequest(`multipart form needs an "image" (or "file") part`)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &scanUpload{
		patientID: req.FormValue("patientId"),
		scanType:  req.FormValue("scanType"),
		data:      data,
		mimeType:  header.Header.Get("Content-Type"),
	}, nil
}

// GET /analysis/{jobId}/status
func (rt *Router) handleStatus(w http.ResponseWriter, req *http.Request) error {
	view, err := rt.analysisSvc.Status(chi.URLParam(req, "jobId"))
	if err != nil {
		return err
	}
	return respondJSON(w, http.StatusOK, view)
}

// GET /analysis/{jobId}
// 200 once the job reached a terminal state, 202 with the polling view
// while it is still queued or processing.
func (rt *Router) handleResult(w http.ResponseWriter, req *http.Request) error {
	job, err := rt.analysisSvc.Result(chi.URLParam(req, "jobId"))
	if err != nil {
		return err
	}
	if !job.Status.Terminal() {
		return respondJSON(w, http.StatusAccepted, appanalysis.StatusView{
			JobID:    string(job.ID),
			Status:   job.Status,
			Progress: job.Progress,
		})
	}
	return respondJSON(w, http.StatusOK, job)
}

// GET /analysis?patientId=&limit=
func (rt *Router) handleList(w http.ResponseWriter, req *http.Request) error {
	patientID := req.URL.Query().Get("patientId")
	if err := middleware.ValidateID("patient", patientID); err != nil {
		return badRequest("%v", err)
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	limit = middleware.ValidateLimit(limit)

	jobs := rt.analysisSvc.ListByPatient(patientID)
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return respondJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// POST /treatment-plan
// Body: {"patientId": "...", "jobId": "...", "notes": "..."}
func (rt *Router) handlePlan(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		PatientID string `json:"patientId"`
		JobID     string `json:"jobId"`
		Notes     string `json:"notes"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		return err
	}
	if err := middleware.ValidateID("patient", body.PatientID); err != nil {
		return badRequest("%v", err)
	}
	if body.JobID != "" {
		if err := middleware.ValidateID("scan", body.JobID); err != nil {
			return badRequest("%v", err)
		}
	}

	p, err := rt.planSvc.Generate(req.Context(), appplan.GenerateCommand{
		PatientID: body.PatientID,
		JobID:     body.JobID,
		Notes:     middleware.SanitizeString(body.Notes),
	})
	if err != nil {
		return err
	}
	return respondJSON(w, http.StatusOK, p)
}

// POST /chat
// Body: {"patientId": "...", "message": "...", "history": [...]}.
// conversationId is optional; a fresh one is minted when absent and
// echoed on the reply so the client can thread follow-ups.
func (rt *Router) handleChat(w http.ResponseWriter, req *http.Request) error {
	var body struct {
		PatientID      string            `json:"patientId"`
		ConversationID string            `json:"conversationId"`
		Message        string            `json:"message"`
		History        []appchat.Message `json:"history"`
	}
	if err := decodeJSON(w, req, &body); err != nil {
		return err
	}
	if err := middleware.ValidateID("patient", body.PatientID); err != nil {
		return badRequest("%v", err)
	}
	message := middleware.SanitizeString(body.Message)
	if message == "" {
		return badRequest("message is required")
	}

	reply, err := rt.chatSvc.Respond(req.Context(), appchat.Command{
		PatientID:      body.PatientID,
		ConversationID: body.ConversationID,
		Message:        message,
		History:        body.History,
	})
	if err != nil {
		return err
	}
	return respondJSON(w, http.StatusOK, reply)
}

func decodeJSON(w http.ResponseWriter, req *http.Request, v any) error {
	req.Body = http.MaxBytesReader(w, req.Body, 1<<20)
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

func respondJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// respondError writes the error envelope. kind names the error class for
// programmatic handling; source is always "error" so clients can treat it
// uniformly with the provider/mock/fallback tags on success payloads.
func respondError(w http.ResponseWriter, code int, kind, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{
		"error":  msg,
		"kind":   kind,
		"source": "error",
	})
}

type badRequestError struct {
	msg string
}

func (e *badRequestError) Error() string { return e.msg }

func badRequest(format string, args ...any) error {
	return &badRequestError{msg: fmt.Sprintf(format, args...)}
}
