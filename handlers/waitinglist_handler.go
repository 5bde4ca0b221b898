package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/clinware/backend/cache"
	"github.com/clinware/backend/models"
	"github.com/clinware/backend/scheduling"
	"github.com/clinware/backend/store"
)

// WaitingListHandler manages the queue of patients waiting for a slot and
// its conversion into concrete appointments.
type WaitingListHandler struct {
	store     *store.Mongo
	scheduler *scheduling.Service
	cache     *cache.Cache
	logger    *zap.Logger
}

func NewWaitingListHandler(st *store.Mongo, scheduler *scheduling.Service, availCache *cache.Cache, logger *zap.Logger) *WaitingListHandler {
	return &WaitingListHandler{
		store:     st,
		scheduler: scheduler,
		cache:     availCache,
		logger:    logger,
	}
}

// AddEntry handles POST /api/waiting-list
func (h *WaitingListHandler) AddEntry(c *fiber.Ctx) error {
	var req scheduling.WaitingListRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	entry, err := h.scheduler.AddToWaitingList(c.Context(), req, actorFromCtx(c))
	if err != nil {
		h.logger.Info("waiting list add rejected",
			zap.String("patient_id", req.PatientID),
			zap.String("doctor_id", req.DoctorID),
			zap.Error(err))
		return respondSchedulingError(c, err)
	}

	h.logger.Info("waiting list entry added",
		zap.String("entry_id", entry.EntryID),
		zap.String("doctor_id", entry.DoctorID),
		zap.Int("priority", entry.Priority))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Added to waiting list",
		"entry":   entry,
	})
}

// ListByDoctor handles GET /api/doctors/:id/waiting-list
func (h *WaitingListHandler) ListByDoctor(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	entries, err := h.store.WaitingEntriesByDoctor(c.Context(), c.Params("id"))
	if err != nil {
		h.logger.Error("failed to list waiting entries",
			zap.String("doctor_id", c.Params("id")),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to fetch waiting list"))
	}

	return c.JSON(fiber.Map{
		"entries": entries,
		"count":   len(entries),
	})
}

type updateWaitingRequest struct {
	Status   string `json:"status"`
	Priority *int   `json:"priority"`
	Notes    string `json:"notes"`
}

// UpdateEntry handles PUT /api/waiting-list/:id. Used by staff to reorder
// the queue or flag an entry as notified.
func (h *WaitingListHandler) UpdateEntry(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	var req updateWaitingRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	fields := bson.M{}
	if req.Status != "" {
		switch req.Status {
		case models.WaitingStatusWaiting, models.WaitingStatusNotified, models.WaitingStatusCancelled:
			fields["status"] = req.Status
		default:
			// "booked" is only ever set by conversion.
			return c.Status(fiber.StatusBadRequest).JSON(
				NewErrorResponse("INVALID_STATUS", "Unknown waiting list status"))
		}
	}
	if req.Priority != nil {
		fields["priority"] = *req.Priority
	}
	if req.Notes != "" {
		fields["notes"] = req.Notes
	}
	if len(fields) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("EMPTY_UPDATE", "No fields to update"))
	}

	if err := h.store.UpdateWaitingEntry(c.Context(), c.Params("id"), fields); err != nil {
		return respondSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Waiting list entry updated"})
}

// DeleteEntry handles DELETE /api/waiting-list/:id
func (h *WaitingListHandler) DeleteEntry(c *fiber.Ctx) error {
	entryID := c.Params("id")

	actor := actorFromCtx(c)
	if !actor.IsAdmin() {
		entry, err := h.store.GetWaitingEntry(c.Context(), entryID)
		if err != nil {
			return respondSchedulingError(c, err)
		}
		patient, err := h.store.GetPatient(c.Context(), entry.PatientID)
		if err != nil || patient.AuthID != actor.AuthID {
			return c.Status(fiber.StatusForbidden).JSON(
				NewErrorResponse("NOT_AUTHORIZED", "You may only remove your own waiting list entries"))
		}
	}

	if err := h.store.DeleteWaitingEntry(c.Context(), entryID); err != nil {
		return respondSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Removed from waiting list"})
}

type convertEntryRequest struct {
	Date any    `json:"date"`
	Time string `json:"time"`
}

// ConvertEntry handles POST /api/waiting-list/:id/book. Books the entry's
// patient into the given slot and removes the entry when booking succeeds.
func (h *WaitingListHandler) ConvertEntry(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	entryID := c.Params("id")
	var req convertEntryRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	appt, err := h.scheduler.ConvertWaitingEntry(c.Context(), entryID, req.Date, req.Time, actorFromCtx(c))
	if err != nil {
		if appt != nil {
			// Appointment exists but the entry could not be removed.
			// Surface both so staff can clean up by hand.
			h.logger.Error("waiting entry conversion left stale entry",
				zap.String("entry_id", entryID),
				zap.String("appointment_id", appt.AppointmentID),
				zap.Error(err))
			return c.Status(fiber.StatusCreated).JSON(fiber.Map{
				"message":     "Appointment booked, but the waiting list entry could not be removed",
				"appointment": appt,
			})
		}
		return respondSchedulingError(c, err)
	}

	if err := h.cache.InvalidatePrefix(c.Context(), appt.DoctorID+":"); err != nil {
		h.logger.Warn("failed to invalidate availability cache",
			zap.String("doctor_id", appt.DoctorID),
			zap.Error(err))
	}

	h.logger.Info("waiting list entry converted",
		zap.String("entry_id", entryID),
		zap.String("appointment_id", appt.AppointmentID))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":     "Waiting list entry booked",
		"appointment": appt,
	})
}
