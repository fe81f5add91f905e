package admin

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/dukerupert/atelier/internal/domain"
	"github.com/dukerupert/atelier/internal/handler"
	"github.com/dukerupert/atelier/internal/middleware"
)

// maxImageSize caps a single uploaded image.
const maxImageSize = 5 * 1024 * 1024

// ImageStore stores uploaded images and returns their public URL.
type ImageStore interface {
	Put(ctx context.Context, key string, content io.Reader, contentType string) (string, error)
}

// UploadHandler accepts product images.
type UploadHandler struct {
	storage ImageStore
	logger  *slog.Logger
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(storage ImageStore, logger *slog.Logger) *UploadHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &UploadHandler{storage: storage, logger: logger}
}

// Upload handles POST /admin/uploads
//
// Expects a multipart form with a "file" part and responds with {"url": ...}.
// The URL is what product variants reference in their image lists.
func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	const op = "admin.upload"
	ctx := r.Context()

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			handler.ErrorResponse(w, r, domain.Errorf(domain.ETOOLARGE, op, "Upload too large"))
			return
		}
		handler.ErrorResponse(w, r, domain.Errorf(domain.EINVALID, op, "Invalid form data"))
		return
	}

	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		handler.ErrorResponse(w, r, domain.NewValidationError(op, "file", "no image file provided"))
		return
	}
	defer file.Close()

	if err := validateImageUpload(fileHeader); err != nil {
		handler.ErrorResponse(w, r, domain.NewValidationError(op, "file", err.Error()))
		return
	}

	buffer := make([]byte, 512)
	n, _ := file.Read(buffer)
	contentType := http.DetectContentType(buffer[:n])
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		handler.InternalErrorResponse(w, r, err)
		return
	}
	if !strings.HasPrefix(contentType, "image/") {
		handler.ErrorResponse(w, r, domain.NewValidationError(op, "file", "file is not an image"))
		return
	}

	key := generateImageKey(fileHeader.Filename)
	url, err := h.storage.Put(ctx, key, file, contentType)
	if err != nil {
		handler.ErrorResponse(w, r, domain.External(err, op, "Failed to store image. Please try again."))
		return
	}

	middleware.GetLogger(ctx, h.logger).Info("image uploaded",
		"key", key,
		"size", fileHeader.Size,
		"content_type", contentType,
	)
	handler.WriteJSON(w, http.StatusCreated, map[string]string{"url": url})
}

func validateImageUpload(fileHeader *multipart.FileHeader) error {
	if fileHeader.Size > maxImageSize {
		return fmt.Errorf("image must be smaller than 5MB (current: %.1fMB)", float64(fileHeader.Size)/(1024*1024))
	}

	ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
	allowedExts := map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".webp": true}
	if !allowedExts[ext] {
		return fmt.Errorf("only JPEG, PNG, and WebP images are supported")
	}

	return nil
}

// generateImageKey creates a storage key of the form products/{uuid}.{ext}
func generateImageKey(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	allowedExts := map[string]string{".jpg": ".jpg", ".jpeg": ".jpg", ".png": ".png", ".webp": ".webp"}
	safeExt, ok := allowedExts[ext]
	if !ok {
		safeExt = ".jpg"
	}
	return fmt.Sprintf("products/%s%s", uuid.NewString(), safeExt)
}
