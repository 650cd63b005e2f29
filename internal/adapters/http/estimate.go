package httpadapter

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/domain"
)

const multipartMemoryLimit = 32 << 20

const fallbackImageMime = "image/jpeg"

var recognizedImageMimes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/webp": {},
	"image/gif":  {},
}

type estimateResponse struct {
	OK        bool       `json:"ok"`
	ID        *int64     `json:"id"`
	CreatedAt *time.Time `json:"created_at"`
	Result    string     `json:"result"`
}

func (rt *Router) createEstimate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	// Overall request cap: every slot filled to its per-file limit, plus
	// headroom for the form fields and multipart framing.
	maxBody := int64(rt.uploads.MaxPhotoCount)*2*rt.uploads.MaxFileBytes + (1 << 20)
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart request"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	photos := r.MultipartForm.File["photos"]
	overlays := r.MultipartForm.File["overlays"]

	if len(photos) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Please upload at least 1 photo."})
		return
	}
	if len(photos) > rt.uploads.MaxPhotoCount {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": fmt.Sprintf("At most %d photos are allowed.", rt.uploads.MaxPhotoCount),
		})
		return
	}

	jobType, err := domain.ParseJobType(r.FormValue("job_type"))
	if err != nil {
		writeError(w, err)
		return
	}

	dumpsterSize, err := parseDumpsterSize(r.FormValue("dumpster_size"))
	if err != nil {
		writeError(w, err)
		return
	}

	shots := make([]domain.Shot, 0, len(photos))
	for i, header := range photos {
		photo, err := rt.readUpload(header)
		if err != nil {
			writeError(w, err)
			return
		}
		shot := domain.Shot{Photo: photo}

		// Overlay i annotates photo i; overlays past the photo count have
		// nothing to annotate and are dropped.
		if i < len(overlays) {
			overlay, err := rt.readUpload(overlays[i])
			if err != nil {
				writeError(w, err)
				return
			}
			shot.Overlay = &overlay
		}
		shots = append(shots, shot)
	}

	result, err := rt.estimates.Estimate(r.Context(), domain.EstimationRequest{
		JobType:      jobType,
		DumpsterSize: dumpsterSize,
		AgentLabel:   truncate(r.FormValue("agent_label"), domain.MaxAgentLabelLength),
		Notes:        truncate(r.FormValue("notes"), domain.MaxNotesLength),
		Shots:        shots,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	resp := estimateResponse{OK: true, Result: result.ResultText}
	if result.Save.Saved {
		resp.ID = &result.Save.ID
		resp.CreatedAt = &result.Save.CreatedAt
	}
	writeJSON(w, http.StatusOK, resp)
}

func (rt *Router) readUpload(header *multipart.FileHeader) (domain.ImageBlob, error) {
	if header.Size > rt.uploads.MaxFileBytes {
		return domain.ImageBlob{}, domain.WrapError(domain.ErrInvalidInput, "read upload",
			fmt.Errorf("file %q exceeds the %d MiB limit", header.Filename, rt.uploads.MaxFileBytes>>20))
	}

	file, err := header.Open()
	if err != nil {
		return domain.ImageBlob{}, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, rt.uploads.MaxFileBytes))
	if err != nil {
		return domain.ImageBlob{}, domain.WrapError(domain.ErrInvalidInput, "read upload", err)
	}
	if len(data) == 0 {
		return domain.ImageBlob{}, domain.WrapError(domain.ErrInvalidInput, "read upload",
			fmt.Errorf("file %q is empty", header.Filename))
	}

	return domain.ImageBlob{
		MimeType: normalizeImageMime(header.Header.Get("Content-Type")),
		Data:     data,
	}, nil
}

// normalizeImageMime honors the declared upload type for the formats the
// model accepts and maps anything else to a safe default.
func normalizeImageMime(declared string) string {
	declared = strings.ToLower(strings.TrimSpace(declared))
	if idx := strings.IndexByte(declared, ';'); idx >= 0 {
		declared = strings.TrimSpace(declared[:idx])
	}
	if _, ok := recognizedImageMimes[declared]; ok {
		return declared
	}
	return fallbackImageMime
}

func parseDumpsterSize(raw string) (*float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "UNKNOWN") {
		return nil, nil
	}
	size, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse dumpster size",
			fmt.Errorf("invalid dumpster size %q", raw))
	}
	if size <= 0 {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse dumpster size",
			errors.New("dumpster size must be positive"))
	}
	return &size, nil
}

func truncate(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) > maxLen {
		return string(runes[:maxLen])
	}
	return s
}
