package controller

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/ikkim/marketplace-backend/internal/errors"
	"github.com/ikkim/marketplace-backend/internal/middleware"
	"github.com/ikkim/marketplace-backend/internal/storage"
)

// ImageUploader issues upload URLs for product images.
type ImageUploader interface {
	PresignImageUpload(ctx context.Context, filename, contentType string) (*storage.PresignedUpload, error)
}

type UploadController struct {
	uploader ImageUploader
}

func NewUploadController(uploader ImageUploader) *UploadController {
	return &UploadController{
		uploader: uploader,
	}
}

type GeneratePresignedURLRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"contentType" binding:"required"`
}

// GeneratePresignedURL generates a presigned URL for uploading a product image
// POST /api/admin/uploads
func (ctrl *UploadController) GeneratePresignedURL(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req GeneratePresignedURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, log, err, "presigned URL")
		return
	}

	upload, err := ctrl.uploader.PresignImageUpload(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedContentType) {
			log.Warn("Invalid content type", map[string]interface{}{
				"content_type": req.ContentType,
			})
			apperrors.BadRequest(c, apperrors.UploadInvalidFileType, "Only image files are allowed (JPEG, PNG, GIF, WEBP)")
			return
		}
		log.Error("Failed to generate presigned URL", err, map[string]interface{}{
			"filename":     req.Filename,
			"content_type": req.ContentType,
		})
		apperrors.RespondWithError(c, http.StatusInternalServerError, apperrors.UploadFailed, "Failed to generate presigned URL")
		return
	}

	log.Info("Presigned URL generated successfully", map[string]interface{}{
		"filename": req.Filename,
		"key":      upload.Key,
	})

	c.JSON(http.StatusOK, upload)
}
