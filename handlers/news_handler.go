package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/clinware/backend/config"
	"github.com/clinware/backend/models"
	"github.com/clinware/backend/store"
)

// NewsPicsBucket holds images attached to news posts.
const NewsPicsBucket = "news-pics"

// NewsHandler serves the clinic's announcement feed.
type NewsHandler struct {
	store       *store.Mongo
	minioClient *minio.Client
	config      *config.Config
	logger      *zap.Logger
}

func NewNewsHandler(st *store.Mongo, minioClient *minio.Client, cfg *config.Config, logger *zap.Logger) *NewsHandler {
	return &NewsHandler{
		store:       st,
		minioClient: minioClient,
		config:      cfg,
		logger:      logger,
	}
}

type newsRequest struct {
	Title     string `json:"title"`
	Body      string `json:"body"`
	Published *bool  `json:"published"`
}

// CreatePost handles POST /api/news
func (h *NewsHandler) CreatePost(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	var req newsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}
	if req.Title == "" || req.Body == "" {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("MISSING_FIELDS", "Title and body are required"))
	}

	published := true
	if req.Published != nil {
		published = *req.Published
	}

	post := &models.NewsPost{
		NewsID:    uuid.New().String(),
		Title:     req.Title,
		Body:      req.Body,
		Published: published,
		CreatedBy: actorFromCtx(c).AuthID,
		CreatedAt: time.Now(),
	}

	if err := h.store.AddNews(c.Context(), post); err != nil {
		h.logger.Error("failed to create news post", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to create news post"))
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "News post created",
		"post":    post,
	})
}

// ListPosts handles GET /api/news. Staff see drafts, everyone else only
// published posts.
func (h *NewsHandler) ListPosts(c *fiber.Ctx) error {
	publishedOnly := !actorFromCtx(c).IsAdmin()

	posts, err := h.store.ListNews(c.Context(), publishedOnly)
	if err != nil {
		h.logger.Error("failed to list news posts", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to fetch news"))
	}

	return c.JSON(fiber.Map{
		"posts": posts,
		"count": len(posts),
	})
}

// GetPost handles GET /api/news/:id
func (h *NewsHandler) GetPost(c *fiber.Ctx) error {
	post, err := h.store.GetNews(c.Context(), c.Params("id"))
	if err != nil {
		return respondSchedulingError(c, err)
	}

	if !post.Published && !actorFromCtx(c).IsAdmin() {
		return c.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse("NEWS_NOT_FOUND", "News post not found"))
	}

	return c.JSON(post)
}

// UpdatePost handles PUT /api/news/:id
func (h *NewsHandler) UpdatePost(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	var req newsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	fields := bson.M{}
	if req.Title != "" {
		fields["title"] = req.Title
	}
	if req.Body != "" {
		fields["body"] = req.Body
	}
	if req.Published != nil {
		fields["published"] = *req.Published
	}
	if len(fields) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("EMPTY_UPDATE", "No fields to update"))
	}

	if err := h.store.UpdateNews(c.Context(), c.Params("id"), fields); err != nil {
		return respondSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"message": "News post updated"})
}

// DeletePost handles DELETE /api/news/:id
func (h *NewsHandler) DeletePost(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	newsID := c.Params("id")
	post, err := h.store.GetNews(c.Context(), newsID)
	if err != nil {
		return respondSchedulingError(c, err)
	}

	if err := h.store.DeleteNews(c.Context(), newsID); err != nil {
		return respondSchedulingError(c, err)
	}

	removeObject(c, h.minioClient, h.logger, NewsPicsBucket, post.ImageURL)

	return c.JSON(fiber.Map{"message": "News post deleted"})
}

// UploadImage handles POST /api/news/:id/image
func (h *NewsHandler) UploadImage(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	newsID := c.Params("id")
	if _, err := h.store.GetNews(c.Context(), newsID); err != nil {
		return respondSchedulingError(c, err)
	}

	file, err := c.FormFile("image")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("MISSING_FILE", "An image file is required"))
	}

	imageURL, objectKey, err := uploadImage(c, h.minioClient, h.config, h.logger, NewsPicsBucket, file)
	if err != nil {
		return err
	}

	if err := h.store.UpdateNews(c.Context(), newsID, bson.M{"image_url": imageURL}); err != nil {
		return respondSchedulingError(c, err)
	}

	fileObj := &models.FileObject{
		FileID:      uuid.New().String(),
		Name:        file.Filename,
		Bucket:      NewsPicsBucket,
		ObjectKey:   objectKey,
		ContentType: "image/jpeg",
		Size:        file.Size,
		UploadedBy:  actorFromCtx(c).AuthID,
		CreatedAt:   time.Now(),
	}
	if err := h.store.AddFile(c.Context(), fileObj); err != nil {
		h.logger.Warn("failed to record uploaded file metadata", zap.Error(err))
	}

	return c.JSON(fiber.Map{
		"message":   "Image uploaded successfully",
		"image_url": imageURL,
	})
}
