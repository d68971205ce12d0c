package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/kiranshivaraju/salesboard/internal/api/response"
	"github.com/kiranshivaraju/salesboard/internal/ingest"
)

// uploadField is the multipart field carrying the file.
const uploadField = "csv"

// Uploader defines the ingestion interface the upload handler depends on.
type Uploader interface {
	Upload(ctx context.Context, req ingest.UploadRequest) (*ingest.UploadResult, error)
}

// NewUploadHandler returns an http.HandlerFunc for POST /api/v1/upload.
// Once the file is read the import runs to completion even if the client
// goes away.
func NewUploadHandler(u Uploader, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
		if err := r.ParseMultipartForm(maxBytes); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				response.Error(w, http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE",
					"Upload exceeds the size limit", map[string]int64{"max_bytes": maxBytes})
				return
			}
			badRequest(w, "No file uploaded")
			return
		}

		file, header, err := r.FormFile(uploadField)
		if err != nil {
			badRequest(w, "No file uploaded")
			return
		}
		defer file.Close()

		data, err := io.ReadAll(file)
		if err != nil {
			badRequest(w, "Upload could not be read")
			return
		}

		result, err := u.Upload(context.WithoutCancel(r.Context()), ingest.UploadRequest{
			Filename:    header.Filename,
			Data:        data,
			CompanyName: strings.TrimSpace(r.FormValue("companyName")),
		})
		if err != nil {
			writeError(w, r, err)
			return
		}

		response.Created(w, result)
	}
}
