package web

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ledger/internal/core"
)

// multipartOverhead is allowed on top of the file size for the rest of the
// multipart body.
const multipartOverhead = 64 << 10

// uploadResponse is the body of a successful upload.
type uploadResponse struct {
	Message string `json:"message"`
	core.UploadResult
}

// rollbackResponse is the body of a successful rollback.
type rollbackResponse struct {
	Message string `json:"message"`
	core.RollbackResult
}

// handleUpload ingests a CSV file sent as multipart field "file".
// Form field strict=true rejects the whole file when any row is rejected.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Upload.MaxFileSize
	if r.ContentLength > maxSize+multipartOverhead {
		s.metrics.ObserveUpload("rejected", 0, 0)
		writeError(w, r, http.StatusRequestEntityTooLarge, msgFileTooLarge)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxSize+multipartOverhead)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		var sizeErr *http.MaxBytesError
		if errors.As(err, &sizeErr) {
			s.metrics.ObserveUpload("rejected", 0, 0)
			writeError(w, r, http.StatusRequestEntityTooLarge, msgFileTooLarge)
			return
		}
		writeError(w, r, http.StatusBadRequest, msgFileRequired)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgFileRequired)
		return
	}
	defer file.Close()

	if !isCSV(header) {
		writeError(w, r, http.StatusBadRequest, msgInvalidFile)
		return
	}
	if header.Size > maxSize {
		s.metrics.ObserveUpload("rejected", 0, 0)
		writeError(w, r, http.StatusRequestEntityTooLarge, msgFileTooLarge)
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, err, "upload transactions")
		return
	}
	strict, _ := strconv.ParseBool(r.FormValue("strict"))

	result, err := s.service.UploadTransactions(r.Context(), core.UploadRequest{
		FileName: header.Filename,
		Data:     data,
		Strict:   strict,
	})
	if err != nil {
		var batchErr *core.BatchError
		if errors.As(err, &batchErr) {
			s.metrics.ObserveUpload("rejected", 0, len(batchErr.Details))
		} else {
			s.metrics.ObserveUpload("error", 0, 0)
		}
		s.respondError(w, r, err, "upload transactions")
		return
	}

	s.metrics.ObserveUpload("success", len(result.Accepted), len(result.Rejected))
	writeJSON(w, http.StatusCreated, uploadResponse{
		Message:      "File uploaded and transactions saved successfully",
		UploadResult: result,
	})
}

// handleRollbackUpload soft-deletes every live record of upload {uploadID}.
func (s *Server) handleRollbackUpload(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.RollbackUpload(r.Context(), chi.URLParam(r, "uploadID"))
	if err != nil {
		s.respondError(w, r, err, "roll back upload")
		return
	}

	writeJSON(w, http.StatusOK, rollbackResponse{
		Message:        "Upload rolled back successfully",
		RollbackResult: result,
	})
}

// isCSV accepts parts whose content type mentions csv or whose name ends
// in .csv.
func isCSV(header *multipart.FileHeader) bool {
	if strings.Contains(strings.ToLower(header.Header.Get("Content-Type")), "csv") {
		return true
	}
	return strings.EqualFold(filepath.Ext(header.Filename), ".csv")
}
