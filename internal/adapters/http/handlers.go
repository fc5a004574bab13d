package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kirillkom/medical-intake/internal/core/domain"
	"github.com/kirillkom/medical-intake/internal/core/usecase"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type notesResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	APIVersion string `json:"api_version"`
	*domain.NotesReport
}

type letterResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	APIVersion string `json:"api_version"`
	*domain.LetterReport
}

func (rt *Router) processPatientData(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxBodyBytes())

	var req struct {
		PatientData *string `json:"patient_data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("request body must be a JSON object")))
		return
	}
	if req.PatientData == nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode request", errors.New("patient_data field is required")))
		return
	}

	started := time.Now()
	report, err := rt.analysis.AnalyzeNotes(r.Context(), *req.PatientData)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnalysis("notes", report.Analysis.ModelUsed, report.Analysis.TokensUsed, time.Since(started))
	}

	writeJSON(w, http.StatusOK, notesResponse{
		Status:      "success",
		Message:     "Patient data processed successfully",
		APIVersion:  rt.cfg.APIVersion,
		NotesReport: report,
	})
}

func (rt *Router) uploadLetter(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxBodyBytes())

	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, r, err)
			return
		}
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("multipart field 'file' is required")))
		return
	}
	defer file.Close()
	if header.Filename == "" {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "read upload", errors.New("no file selected")))
		return
	}

	started := time.Now()
	report, err := rt.analysis.AnalyzeLetter(r.Context(), header.Filename, file)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordAnalysis("letter", report.Analysis.ModelUsed, report.Analysis.TokensUsed, time.Since(started))
	}

	writeJSON(w, http.StatusOK, letterResponse{
		Status:       "success",
		Message:      "Clinical letter processed successfully",
		APIVersion:   rt.cfg.APIVersion,
		LetterReport: report,
	})
}

// storeRecord always answers 200 with the outcome; a rejection is not an error.
func (rt *Router) storeRecord(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxBodyBytes())

	var record domain.AnalysisRecord
	if err := json.NewDecoder(r.Body).Decode(&record); err != nil || record == nil {
		writeError(w, r, domain.WrapError(domain.ErrInvalidInput, "decode record", errors.New("request body must be a JSON object")))
		return
	}

	writeJSON(w, http.StatusOK, rt.intake.ClassifyAndStore(r.Context(), record))
}

func (rt *Router) getRecord(w http.ResponseWriter, r *http.Request) {
	projection, err := rt.intake.Retrieve(r.Context(), chi.URLParam(r, "storage_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projection)
}

func (rt *Router) deleteRecord(w http.ResponseWriter, r *http.Request) {
	deleted, err := rt.intake.Delete(r.Context(), chi.URLParam(r, "storage_id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !deleted {
		writeError(w, r, domain.ErrRecordNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (rt *Router) storageStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rt.intake.Stats(r.Context()))
}

func (rt *Router) requestSweep(w http.ResponseWriter, r *http.Request) {
	if rt.sweeps == nil {
		writeError(w, r, domain.WrapError(domain.ErrTemporary, "request sweep", errors.New("sweep queue is not configured")))
		return
	}
	if err := rt.sweeps.PublishSweepRequested(r.Context(), "api:"+requestIDFromContext(r.Context())); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

func (rt *Router) auditEntries(w http.ResponseWriter, r *http.Request) {
	dayParam := chi.URLParam(r, "day")
	day, err := usecase.ParseAuditDay(dayParam)
	if err != nil {
		writeError(w, r, err)
		return
	}
	entries, err := rt.audit.Entries(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"day":     dayParam,
		"count":   len(entries),
		"entries": entries,
	})
}

func (rt *Router) auditExport(w http.ResponseWriter, r *http.Request) {
	dayParam := chi.URLParam(r, "day")
	day, err := usecase.ParseAuditDay(dayParam)
	if err != nil {
		writeError(w, r, err)
		return
	}
	data, err := rt.audit.Export(r.Context(), day)
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="audit_%s.xlsx"`, day.Format(domain.AuditDayLayout)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) maxBodyBytes() int64 {
	if rt.cfg.MaxUploadBytes > 0 {
		return rt.cfg.MaxUploadBytes
	}
	return 16 << 20
}
