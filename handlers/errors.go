package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/clinware/backend/scheduling"
)

// Structured Error Responses. Every error body carries the human-readable
// message under "error", matching the middleware and the Fiber error
// handler; "code" is a stable machine-readable tag on top of that.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

func NewErrorResponse(code string, message string, details ...any) ErrorResponse {
	var detail any
	if len(details) > 0 {
		detail = details
	}
	return ErrorResponse{
		Error:   message,
		Code:    code,
		Details: detail,
	}
}

// respondSchedulingError translates the scheduling package's sentinel errors
// into HTTP responses. Unknown errors become an opaque 500.
func respondSchedulingError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, scheduling.ErrSlotTaken):
		return c.Status(fiber.StatusConflict).JSON(
			NewErrorResponse("SLOT_TAKEN", "This time slot is no longer available. Please select another time."))
	case errors.Is(err, scheduling.ErrSlotAlreadyLocked):
		return c.Status(fiber.StatusConflict).JSON(
			NewErrorResponse("SLOT_LOCKED", "This slot is already locked"))
	case errors.Is(err, scheduling.ErrEntryNotWaiting):
		return c.Status(fiber.StatusConflict).JSON(
			NewErrorResponse("ENTRY_NOT_WAITING", "Waiting list entry is not in waiting status"))
	case errors.Is(err, scheduling.ErrDoctorNotFound):
		return c.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse("DOCTOR_NOT_FOUND", "Doctor not found"))
	case errors.Is(err, scheduling.ErrPatientNotFound):
		return c.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse("PATIENT_NOT_FOUND", "Patient not found"))
	case errors.Is(err, scheduling.ErrAppointmentNotFound):
		return c.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse("APPOINTMENT_NOT_FOUND", "Appointment not found"))
	case errors.Is(err, scheduling.ErrEntryNotFound):
		return c.Status(fiber.StatusNotFound).JSON(
			NewErrorResponse("ENTRY_NOT_FOUND", "Waiting list entry not found"))
	case errors.Is(err, scheduling.ErrNotAuthorized):
		return c.Status(fiber.StatusForbidden).JSON(
			NewErrorResponse("NOT_AUTHORIZED", "You can only book appointments for yourself"))
	case errors.Is(err, scheduling.ErrInvalidDate):
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_DATE", "Date must be in YYYY-MM-DD format"))
	case errors.Is(err, scheduling.ErrInvalidTime):
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_TIME", "Time must be in HH:MM format"))
	case errors.Is(err, scheduling.ErrMissingFields):
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("MISSING_FIELDS", "Patient, doctor and date are required"))
	case errors.Is(err, scheduling.ErrUnknownTemplate):
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("UNKNOWN_TEMPLATE", "Unknown schedule template"))
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "An internal server error occurred"))
	}
}

// actorFromCtx reads the identity the auth middleware stored in locals.
func actorFromCtx(c *fiber.Ctx) scheduling.Actor {
	authID, _ := c.Locals("authID").(string)
	role, _ := c.Locals("role").(string)
	return scheduling.Actor{AuthID: authID, Role: role}
}

// requireAdmin rejects callers whose role is neither admin nor staff.
// Returns false when it has already written the response.
func requireAdmin(c *fiber.Ctx) bool {
	if actorFromCtx(c).IsAdmin() {
		return true
	}
	c.Status(fiber.StatusForbidden).JSON(
		NewErrorResponse("NOT_AUTHORIZED", "Administrator access required"))
	return false
}
