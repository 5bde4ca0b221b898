package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// MediaHandler streams stored images back to clients.
type MediaHandler struct {
	minioClient *minio.Client
	logger      *zap.Logger
}

func NewMediaHandler(minioClient *minio.Client, logger *zap.Logger) *MediaHandler {
	return &MediaHandler{
		minioClient: minioClient,
		logger:      logger,
	}
}

// allowedBuckets guards the path parameter so arbitrary buckets cannot be
// read through this endpoint.
var allowedBuckets = map[string]bool{
	DoctorPicsBucket: true,
	NewsPicsBucket:   true,
}

// GetMedia handles GET /api/media/:bucket/:filename
func (h *MediaHandler) GetMedia(c *fiber.Ctx) error {
	bucket := c.Params("bucket")
	filename := c.Params("filename")

	if !allowedBuckets[bucket] {
		return c.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse("MEDIA_NOT_FOUND", "File not found"))
	}
	if strings.Contains(filename, "/") || strings.Contains(filename, "..") {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_FILENAME", "Invalid file name"))
	}

	var obj *minio.Object
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		obj, err = h.minioClient.GetObject(c.Context(), bucket, filename, minio.GetObjectOptions{})
		if err == nil {
			break
		}
		h.logger.Warn("attempt to get object from minio failed, retrying...",
			zap.String("bucket", bucket),
			zap.String("filename", filename),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
	if err != nil {
		h.logger.Error("all attempts to get object from minio failed",
			zap.String("bucket", bucket),
			zap.String("filename", filename),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to fetch file"))
	}

	stat, err := obj.Stat()
	if err != nil {
		obj.Close()
		return c.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse("MEDIA_NOT_FOUND", "File not found"))
	}

	contentType := stat.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Set("Content-Type", contentType)
	c.Set("Cache-Control", "public, max-age=86400")

	return c.SendStream(obj, int(stat.Size))
}

// removeObject deletes a stored object, logging failures without surfacing
// them. Used when the owning record goes away.
func removeObject(c *fiber.Ctx, minioClient *minio.Client, logger *zap.Logger, bucket, imageURL string) {
	if imageURL == "" {
		return
	}
	idx := strings.LastIndex(imageURL, "/")
	if idx < 0 || idx == len(imageURL)-1 {
		return
	}
	objectKey := imageURL[idx+1:]

	if err := minioClient.RemoveObject(c.Context(), bucket, objectKey, minio.RemoveObjectOptions{}); err != nil {
		logger.Warn("failed to remove object from minio",
			zap.String("bucket", bucket),
			zap.String("object_key", objectKey),
			zap.Error(err))
	}
}
