package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/clinware/backend/cache"
	"github.com/clinware/backend/config"
	"github.com/clinware/backend/models"
	"github.com/clinware/backend/scheduling"
	"github.com/clinware/backend/store"
)

// DoctorPicsBucket holds resized doctor profile photos.
const DoctorPicsBucket = "doctor-pics"

// DoctorHandler manages doctor records and their weekly schedules.
type DoctorHandler struct {
	store       *store.Mongo
	cache       *cache.Cache
	minioClient *minio.Client
	config      *config.Config
	logger      *zap.Logger
}

func NewDoctorHandler(st *store.Mongo, availCache *cache.Cache, minioClient *minio.Client, cfg *config.Config, logger *zap.Logger) *DoctorHandler {
	return &DoctorHandler{
		store:       st,
		cache:       availCache,
		minioClient: minioClient,
		config:      cfg,
		logger:      logger,
	}
}

func (h *DoctorHandler) invalidateAvailability(c *fiber.Ctx, doctorID string) {
	if err := h.cache.InvalidatePrefix(c.Context(), doctorID+":"); err != nil {
		h.logger.Warn("failed to invalidate availability cache",
			zap.String("doctor_id", doctorID),
			zap.Error(err))
	}
}

type createDoctorRequest struct {
	Name          string                  `json:"name"`
	Speciality    string                  `json:"speciality"`
	Qualification string                  `json:"qualification"`
	Email         string                  `json:"email"`
	Mobile        string                  `json:"mobile"`
	Schedules     []models.DoctorSchedule `json:"schedules"`
}

var errInvalidDayOfWeek = errors.New("day_of_week must be between 0 and 6")

// normalizeSchedules validates windows and zero-pads their clock times.
func normalizeSchedules(entries []models.DoctorSchedule) ([]models.DoctorSchedule, error) {
	out := make([]models.DoctorSchedule, 0, len(entries))
	for _, entry := range entries {
		if entry.DayOfWeek < 0 || entry.DayOfWeek > 6 {
			return nil, errInvalidDayOfWeek
		}
		start, err := scheduling.NormalizeClockTime(entry.StartTime)
		if err != nil {
			return nil, err
		}
		end, err := scheduling.NormalizeClockTime(entry.EndTime)
		if err != nil {
			return nil, err
		}
		entry.StartTime = start
		entry.EndTime = end
		if entry.SlotDuration <= 0 {
			entry.SlotDuration = scheduling.DefaultSlotDuration
		}
		out = append(out, entry)
	}
	return out, nil
}

// CreateDoctor handles POST /api/doctors
func (h *DoctorHandler) CreateDoctor(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	var req createDoctorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("MISSING_FIELDS", "Doctor name is required"))
	}

	schedules, err := normalizeSchedules(req.Schedules)
	if err != nil {
		if errors.Is(err, errInvalidDayOfWeek) {
			return c.Status(fiber.StatusBadRequest).JSON(
				NewErrorResponse("INVALID_SCHEDULE", err.Error()))
		}
		return respondSchedulingError(c, err)
	}

	doctor := &models.Doctor{
		DoctorID:      uuid.New().String(),
		Name:          req.Name,
		Speciality:    req.Speciality,
		Qualification: req.Qualification,
		Email:         req.Email,
		Mobile:        req.Mobile,
		Schedules:     schedules,
		IsActive:      true,
		CreatedAt:     time.Now(),
	}

	if err := h.store.AddDoctor(c.Context(), doctor); err != nil {
		h.logger.Error("failed to create doctor", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to create doctor"))
	}

	h.logger.Info("doctor created",
		zap.String("doctor_id", doctor.DoctorID),
		zap.String("name", doctor.Name))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Doctor created successfully",
		"doctor":  doctor,
	})
}

// ListDoctors handles GET /api/doctors
func (h *DoctorHandler) ListDoctors(c *fiber.Ctx) error {
	doctors, err := h.store.ListDoctors(c.Context())
	if err != nil {
		h.logger.Error("failed to list doctors", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to fetch doctors"))
	}

	return c.JSON(fiber.Map{
		"doctors": doctors,
		"count":   len(doctors),
	})
}

// GetDoctor handles GET /api/doctors/:id
func (h *DoctorHandler) GetDoctor(c *fiber.Ctx) error {
	doctor, err := h.store.GetDoctor(c.Context(), c.Params("id"))
	if err != nil {
		return respondSchedulingError(c, err)
	}
	return c.JSON(doctor)
}

type updateDoctorRequest struct {
	Name          string `json:"name"`
	Speciality    string `json:"speciality"`
	Qualification string `json:"qualification"`
	Email         string `json:"email"`
	Mobile        string `json:"mobile"`
	IsActive      *bool  `json:"is_active"`
}

// UpdateDoctor handles PUT /api/doctors/:id
func (h *DoctorHandler) UpdateDoctor(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	var req updateDoctorRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	fields := bson.M{}
	if req.Name != "" {
		fields["name"] = req.Name
	}
	if req.Speciality != "" {
		fields["speciality"] = req.Speciality
	}
	if req.Qualification != "" {
		fields["qualification"] = req.Qualification
	}
	if req.Email != "" {
		fields["email"] = req.Email
	}
	if req.Mobile != "" {
		fields["mobile"] = req.Mobile
	}
	if req.IsActive != nil {
		fields["is_active"] = *req.IsActive
	}
	if len(fields) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("EMPTY_UPDATE", "No fields to update"))
	}

	if err := h.store.UpdateDoctor(c.Context(), c.Params("id"), fields); err != nil {
		return respondSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Doctor updated successfully"})
}

// DeleteDoctor handles DELETE /api/doctors/:id
func (h *DoctorHandler) DeleteDoctor(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	doctorID := c.Params("id")
	doctor, err := h.store.GetDoctor(c.Context(), doctorID)
	if err != nil {
		return respondSchedulingError(c, err)
	}

	if err := h.store.DeleteDoctor(c.Context(), doctorID); err != nil {
		return respondSchedulingError(c, err)
	}

	removeObject(c, h.minioClient, h.logger, DoctorPicsBucket, doctor.PhotoURL)
	h.invalidateAvailability(c, doctorID)

	return c.JSON(fiber.Map{"message": "Doctor deleted successfully"})
}

type setScheduleRequest struct {
	Schedules []models.DoctorSchedule `json:"schedules"`
}

// SetSchedule handles PUT /api/doctors/:id/schedule and replaces the
// doctor's weekly schedule wholesale.
func (h *DoctorHandler) SetSchedule(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	doctorID := c.Params("id")
	var req setScheduleRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	schedules, err := normalizeSchedules(req.Schedules)
	if err != nil {
		if errors.Is(err, errInvalidDayOfWeek) {
			return c.Status(fiber.StatusBadRequest).JSON(
				NewErrorResponse("INVALID_SCHEDULE", err.Error()))
		}
		return respondSchedulingError(c, err)
	}

	if err := h.store.UpdateDoctor(c.Context(), doctorID, bson.M{"schedules": schedules}); err != nil {
		return respondSchedulingError(c, err)
	}

	h.invalidateAvailability(c, doctorID)

	h.logger.Info("doctor schedule replaced",
		zap.String("doctor_id", doctorID),
		zap.Int("windows", len(schedules)))

	return c.JSON(fiber.Map{
		"message":   "Schedule updated successfully",
		"schedules": schedules,
	})
}

type applyTemplateRequest struct {
	Template     string `json:"template"`
	SlotDuration int    `json:"slot_duration"`
	ServiceType  string `json:"service_type"`
}

// ApplyScheduleTemplate handles POST /api/doctors/:id/schedule/template.
// Expands a named weekly template into schedule entries and stores them.
func (h *DoctorHandler) ApplyScheduleTemplate(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	doctorID := c.Params("id")
	var req applyTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	schedules, err := scheduling.ExpandTemplate(req.Template, req.SlotDuration, req.ServiceType)
	if err != nil {
		return respondSchedulingError(c, err)
	}

	if err := h.store.UpdateDoctor(c.Context(), doctorID, bson.M{"schedules": schedules}); err != nil {
		return respondSchedulingError(c, err)
	}

	h.invalidateAvailability(c, doctorID)

	return c.JSON(fiber.Map{
		"message":   "Schedule template applied",
		"template":  req.Template,
		"schedules": schedules,
	})
}

// ListScheduleTemplates handles GET /api/schedule-templates
func (h *DoctorHandler) ListScheduleTemplates(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"templates": scheduling.TemplateNames()})
}

// UploadPhoto handles POST /api/doctors/:id/photo. The image is resized,
// re-encoded as JPEG and stored in MinIO.
func (h *DoctorHandler) UploadPhoto(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	doctorID := c.Params("id")
	if _, err := h.store.GetDoctor(c.Context(), doctorID); err != nil {
		return respondSchedulingError(c, err)
	}

	file, err := c.FormFile("photo")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("MISSING_FILE", "A photo file is required"))
	}

	imageURL, objectKey, err := uploadImage(c, h.minioClient, h.config, h.logger, DoctorPicsBucket, file)
	if err != nil {
		return err
	}

	if err := h.store.UpdateDoctor(c.Context(), doctorID, bson.M{"photo_url": imageURL}); err != nil {
		return respondSchedulingError(c, err)
	}

	fileObj := &models.FileObject{
		FileID:      uuid.New().String(),
		Name:        file.Filename,
		Bucket:      DoctorPicsBucket,
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
		"message":   "Photo uploaded successfully",
		"photo_url": imageURL,
	})
}
