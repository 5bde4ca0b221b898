package handlers

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/nfnt/resize"
	"go.uber.org/zap"

	"github.com/clinware/backend/config"
)

const (
	jpegQuality    = 85
	maxImageWidth  = 512
	maxImageHeight = 512
)

// uploadImage resizes and stores an uploaded image in MinIO. On success it
// returns the public URL and the object key; on failure it has already
// written the error response.
func uploadImage(c *fiber.Ctx, minioClient *minio.Client, cfg *config.Config, logger *zap.Logger, bucketName string, file *multipart.FileHeader) (string, string, error) {
	// Validate file type
	ext := strings.ToLower(filepath.Ext(file.Filename))
	if ext != ".jpg" && ext != ".jpeg" && ext != ".png" {
		return "", "", c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_FILE_TYPE", "Only JPG and PNG files are allowed"))
	}

	src, err := file.Open()
	if err != nil {
		logger.Error("failed to open uploaded file", zap.Error(err))
		return "", "", c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("UPLOAD_FAILED", "Failed to process uploaded file"))
	}
	defer src.Close()

	img, _, err := image.Decode(src)
	if err != nil {
		logger.Error("failed to decode image", zap.Error(err))
		return "", "", c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_IMAGE", "Invalid image format"))
	}

	resized := resize.Resize(maxImageWidth, maxImageHeight, img, resize.Lanczos3)

	buf := new(bytes.Buffer)
	if err := jpeg.Encode(buf, resized, &jpeg.Options{Quality: jpegQuality}); err != nil {
		logger.Error("failed to encode image", zap.Error(err))
		return "", "", c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("UPLOAD_FAILED", "Failed to process image"))
	}

	objectKey := fmt.Sprintf("%s.jpg", uuid.New().String())

	ctx, cancel := context.WithTimeout(c.Context(), 30*time.Second)
	defer cancel()

	if err := ensureBucket(ctx, minioClient, cfg, bucketName); err != nil {
		logger.Error("failed to ensure bucket",
			zap.String("bucket", bucketName),
			zap.Error(err))
		return "", "", c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("UPLOAD_FAILED", "Failed to configure storage"))
	}

	info, err := minioClient.PutObject(
		ctx,
		bucketName,
		objectKey,
		bytes.NewReader(buf.Bytes()),
		int64(buf.Len()),
		minio.PutObjectOptions{
			ContentType: "image/jpeg",
		},
	)
	if err != nil {
		logger.Error("failed to upload to minio",
			zap.Error(err),
			zap.String("bucket", bucketName),
			zap.String("object_key", objectKey))
		return "", "", c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("UPLOAD_FAILED", "Failed to store image"))
	}

	if info.Size == 0 {
		logger.Error("upload completed but file size is 0",
			zap.String("object_key", objectKey))
		return "", "", c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("UPLOAD_FAILED", "Failed to store image properly"))
	}

	logger.Info("uploaded file to minio",
		zap.String("bucket", bucketName),
		zap.String("object_key", objectKey),
		zap.Int64("size", info.Size))

	imageURL := fmt.Sprintf("%s/%s/%s", cfg.MinioEndpoint, bucketName, objectKey)
	return imageURL, objectKey, nil
}

// ensureBucket creates the bucket when it does not exist yet.
func ensureBucket(ctx context.Context, minioClient *minio.Client, cfg *config.Config, bucketName string) error {
	exists, err := minioClient.BucketExists(ctx, bucketName)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	err = minioClient.MakeBucket(ctx, bucketName, minio.MakeBucketOptions{
		Region: cfg.MinioRegion,
	})
	if err != nil && !strings.Contains(err.Error(), "already exists") {
		return err
	}
	return nil
}
