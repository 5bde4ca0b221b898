package handlers

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/clinware/backend/cache"
	"github.com/clinware/backend/config"
	"github.com/clinware/backend/models"
	"github.com/clinware/backend/scheduling"
	"github.com/clinware/backend/store"
)

// availabilityCacheTTL keeps cached slot listings short-lived so a booking
// made through another instance surfaces quickly.
const availabilityCacheTTL = 60 * time.Second

// AppointmentHandler serves slot availability, booking and slot locking.
type AppointmentHandler struct {
	store     *store.Mongo
	scheduler *scheduling.Service
	cache     *cache.Cache
	config    *config.Config
	logger    *zap.Logger
}

func NewAppointmentHandler(st *store.Mongo, scheduler *scheduling.Service, availCache *cache.Cache, cfg *config.Config, logger *zap.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		store:     st,
		scheduler: scheduler,
		cache:     availCache,
		config:    cfg,
		logger:    logger,
	}
}

func availabilityCacheKey(doctorID, date, serviceType string) string {
	return fmt.Sprintf("%s:%s:%s", doctorID, date, serviceType)
}

func (h *AppointmentHandler) invalidateAvailability(c *fiber.Ctx, doctorID string) {
	if err := h.cache.InvalidatePrefix(c.Context(), doctorID+":"); err != nil {
		h.logger.Warn("failed to invalidate availability cache",
			zap.String("doctor_id", doctorID),
			zap.Error(err))
	}
}

// GetAvailableSlots handles GET /api/doctors/:id/available-slots?date=&service_type=
func (h *AppointmentHandler) GetAvailableSlots(c *fiber.Ctx) error {
	doctorID := c.Params("id")
	date := c.Query("date")
	serviceType := c.Query("serviceType", c.Query("service_type"))

	if date == "" {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("MISSING_DATE", "date query parameter is required"))
	}

	cacheKey := availabilityCacheKey(doctorID, date, serviceType)
	var cached scheduling.Availability
	if err := h.cache.Get(c.Context(), cacheKey, &cached); err == nil {
		return c.JSON(cached)
	} else if err != cache.ErrMiss {
		h.logger.Warn("availability cache lookup failed", zap.Error(err))
	}

	avail, err := h.scheduler.Availability(c.Context(), doctorID, date, serviceType)
	if err != nil {
		h.logger.Error("failed to resolve availability",
			zap.String("doctor_id", doctorID),
			zap.String("date", date),
			zap.Error(err))
		return respondSchedulingError(c, err)
	}

	if err := h.cache.Set(c.Context(), cacheKey, avail, availabilityCacheTTL); err != nil {
		h.logger.Warn("failed to cache availability", zap.Error(err))
	}

	return c.JSON(avail)
}

// BookAppointment handles POST /api/appointments/book. Patients book for
// themselves; staff may book on behalf of any patient.
func (h *AppointmentHandler) BookAppointment(c *fiber.Ctx) error {
	var req scheduling.BookingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	actor := actorFromCtx(c)
	appt, err := h.scheduler.Book(c.Context(), req, actor)
	if err != nil {
		h.logger.Info("booking rejected",
			zap.String("patient_id", req.PatientID),
			zap.String("doctor_id", req.DoctorID),
			zap.Error(err))
		return respondSchedulingError(c, err)
	}

	h.invalidateAvailability(c, appt.DoctorID)

	h.logger.Info("appointment booked",
		zap.String("appointment_id", appt.AppointmentID),
		zap.String("doctor_id", appt.DoctorID),
		zap.String("time", appt.AppointmentTime))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Appointment booked successfully",
		"appointment": appt,
	})
}

// CreateAppointment handles POST /api/appointments, the staff-side entry
// point. Same engine as self-service booking, but gated on role.
func (h *AppointmentHandler) CreateAppointment(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}
	return h.BookAppointment(c)
}

// GetAppointment handles GET /api/appointments/:id
func (h *AppointmentHandler) GetAppointment(c *fiber.Ctx) error {
	appt, err := h.store.GetAppointment(c.Context(), c.Params("id"))
	if err != nil {
		return respondSchedulingError(c, err)
	}

	actor := actorFromCtx(c)
	if !actor.IsAdmin() && appt.CreatedBy != actor.AuthID {
		// Patients may still read their own appointments booked by staff.
		patient, perr := h.store.GetPatient(c.Context(), appt.PatientID)
		if perr != nil || patient.AuthID != actor.AuthID {
			return c.Status(fiber.StatusForbidden).JSON(
				NewErrorResponse("NOT_AUTHORIZED", "You may only view your own appointments"))
		}
	}

	return c.JSON(appt)
}

// ListPatientAppointments handles GET /api/patients/:id/appointments
func (h *AppointmentHandler) ListPatientAppointments(c *fiber.Ctx) error {
	patientID := c.Params("id")

	actor := actorFromCtx(c)
	if !actor.IsAdmin() {
		patient, err := h.store.GetPatient(c.Context(), patientID)
		if err != nil {
			return respondSchedulingError(c, err)
		}
		if patient.AuthID != actor.AuthID {
			return c.Status(fiber.StatusForbidden).JSON(
				NewErrorResponse("NOT_AUTHORIZED", "You may only view your own appointments"))
		}
	}

	appts, err := h.store.AppointmentsByPatient(c.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to list patient appointments",
			zap.String("patient_id", patientID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to fetch appointments"))
	}

	return c.JSON(fiber.Map{
		"appointments": appts,
		"count":        len(appts),
	})
}

// ListDoctorAppointments handles GET /api/doctors/:id/appointments?date=
func (h *AppointmentHandler) ListDoctorAppointments(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	q := scheduling.AppointmentQuery{DoctorID: c.Params("id")}
	if date := c.Query("date"); date != "" {
		parsed, err := scheduling.ParseDate(date)
		if err != nil {
			return respondSchedulingError(c, err)
		}
		q.Date = &parsed
	}

	appts, err := h.store.Appointments(c.Context(), q)
	if err != nil {
		h.logger.Error("failed to list doctor appointments",
			zap.String("doctor_id", q.DoctorID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to fetch appointments"))
	}

	return c.JSON(fiber.Map{
		"appointments": appts,
		"count":        len(appts),
	})
}

type updateAppointmentRequest struct {
	Status string `json:"status"`
	Notes  string `json:"notes"`
}

// UpdateAppointment handles PUT /api/appointments/:id. Status transitions
// (completed, cancelled, no-show) and note edits only; rescheduling goes
// through cancel-and-rebook so the conflict check always runs.
func (h *AppointmentHandler) UpdateAppointment(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	appointmentID := c.Params("id")
	var req updateAppointmentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	fields := bson.M{}
	if req.Status != "" {
		switch req.Status {
		case models.AppointmentScheduled, models.AppointmentCompleted,
			models.AppointmentCancelled, models.AppointmentNoShow, models.AppointmentPending:
			fields["status"] = req.Status
		default:
			return c.Status(fiber.StatusBadRequest).JSON(
				NewErrorResponse("INVALID_STATUS", "Unknown appointment status"))
		}
	}
	if req.Notes != "" {
		fields["notes"] = req.Notes
	}
	if len(fields) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("EMPTY_UPDATE", "No fields to update"))
	}

	appt, err := h.store.GetAppointment(c.Context(), appointmentID)
	if err != nil {
		return respondSchedulingError(c, err)
	}

	if err := h.store.UpdateAppointment(c.Context(), appointmentID, fields); err != nil {
		h.logger.Error("failed to update appointment",
			zap.String("appointment_id", appointmentID),
			zap.Error(err))
		return respondSchedulingError(c, err)
	}

	// A cancellation frees the slot, so cached availability is stale.
	h.invalidateAvailability(c, appt.DoctorID)

	return c.JSON(fiber.Map{"message": "Appointment updated successfully"})
}

// DeleteAppointment handles DELETE /api/appointments/:id
func (h *AppointmentHandler) DeleteAppointment(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	appointmentID := c.Params("id")
	appt, err := h.store.GetAppointment(c.Context(), appointmentID)
	if err != nil {
		return respondSchedulingError(c, err)
	}

	if err := h.store.DeleteAppointment(c.Context(), appointmentID); err != nil {
		h.logger.Error("failed to delete appointment",
			zap.String("appointment_id", appointmentID),
			zap.Error(err))
		return respondSchedulingError(c, err)
	}

	h.invalidateAvailability(c, appt.DoctorID)

	return c.JSON(fiber.Map{"message": "Appointment deleted successfully"})
}

// ClearPatientHistory handles DELETE /api/patients/:id/appointments and
// removes every appointment record for the patient.
func (h *AppointmentHandler) ClearPatientHistory(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	patientID := c.Params("id")
	if _, err := h.store.GetPatient(c.Context(), patientID); err != nil {
		return respondSchedulingError(c, err)
	}

	deleted, err := h.store.DeleteAppointmentsByPatient(c.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to clear patient history",
			zap.String("patient_id", patientID),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to clear appointment history"))
	}

	h.logger.Info("patient history cleared",
		zap.String("patient_id", patientID),
		zap.Int64("deleted", deleted))

	return c.JSON(fiber.Map{
		"message": "Appointment history cleared",
		"deleted": deleted,
	})
}

type lockSlotRequest struct {
	Date   string `json:"date"`
	Time   string `json:"time"`
	Reason string `json:"reason"`
}

// LockSlot handles POST /api/doctors/:id/locked-slots
func (h *AppointmentHandler) LockSlot(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	doctorID := c.Params("id")
	var req lockSlotRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	lock, err := h.scheduler.LockSlot(c.Context(), doctorID, req.Date, req.Time, req.Reason, actorFromCtx(c))
	if err != nil {
		return respondSchedulingError(c, err)
	}

	h.invalidateAvailability(c, doctorID)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Slot locked",
		"lock":    lock,
	})
}

// ListLockedSlots handles GET /api/doctors/:id/locked-slots?date=
func (h *AppointmentHandler) ListLockedSlots(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	locks, err := h.store.LockedSlots(c.Context(), c.Params("id"), c.Query("date"))
	if err != nil {
		h.logger.Error("failed to list locked slots",
			zap.String("doctor_id", c.Params("id")),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to fetch locked slots"))
	}

	return c.JSON(fiber.Map{
		"locked_slots": locks,
		"count":        len(locks),
	})
}

// UnlockSlot handles DELETE /api/doctors/:id/locked-slots/:lockID
func (h *AppointmentHandler) UnlockSlot(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	doctorID := c.Params("id")
	if err := h.scheduler.UnlockSlot(c.Context(), c.Params("lockID")); err != nil {
		return respondSchedulingError(c, err)
	}

	h.invalidateAvailability(c, doctorID)

	return c.JSON(fiber.Map{"message": "Slot unlocked"})
}
