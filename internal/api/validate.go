package api

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"driftline/internal/profile"
	"driftline/internal/validate"
)

// validationReportJSON is the response for the file validation endpoint:
// the pure-Go acceptance verdict plus, when the profiler is available, a
// deep per-column profile. Profiler failures degrade to the verdict alone.
type validationReportJSON struct {
	Filename     string               `json:"filename"`
	SizeBytes    int64                `json:"size_bytes"`
	Result       *validate.Result     `json:"result"`
	Profile      *profile.FileProfile `json:"profile,omitempty"`
	ProfileError string               `json:"profile_error,omitempty"`
}

// validateFile runs the acceptance checks against a CSV posted as the raw
// request body, without touching any landing zone. Operators use it to
// diagnose rejected drops before re-uploading.
func (h *Handler) validateFile(w http.ResponseWriter, r *http.Request) {
	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = "upload.csv"
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "file exceeds the %d byte limit", h.maxUpload)
			return
		}
		writeError(w, http.StatusBadRequest, "read request body: %v", err)
		return
	}

	report := validationReportJSON{Filename: filename, SizeBytes: int64(len(data))}

	header, rows, err := readCSV(bytes.NewReader(data))
	if err != nil {
		report.Result = &validate.Result{Reason: fmt.Sprintf("csv parse: %v", err)}
	} else {
		report.Result = validate.File(filename, int64(len(data)), h.maxUpload, header, rows)
	}

	if h.profiler != nil {
		prof, err := h.profileUpload(r, data)
		if err != nil {
			report.ProfileError = err.Error()
		} else {
			report.Profile = prof
		}
	}

	writeJSON(w, http.StatusOK, report)
}

// profileUpload stages the payload in a temp file so the DuckDB profiler can
// read it from disk.
func (h *Handler) profileUpload(r *http.Request, data []byte) (*profile.FileProfile, error) {
	f, err := os.CreateTemp("", "driftline-validate-*.csv")
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	return h.profiler.Profile(r.Context(), path)
}

// readCSV splits a payload into header and data rows. Ragged rows are
// tolerated here; CheckRows reports them with a row number.
func readCSV(r io.Reader) (header []string, rows [][]string, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err = reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}

	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return header, rows, nil
		}
		if err != nil {
			return nil, nil, err
		}
		rows = append(rows, row)
	}
}
