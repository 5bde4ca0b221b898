package handlers

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"

	"github.com/clinware/backend/scheduling"
)

func doErrorRequest(t *testing.T, err error) (int, ErrorResponse) {
	t.Helper()

	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return respondSchedulingError(c, err)
	})

	resp, reqErr := app.Test(httptest.NewRequest("GET", "/boom", nil))
	if reqErr != nil {
		t.Fatalf("request failed: %v", reqErr)
	}
	defer resp.Body.Close()

	var body ErrorResponse
	if decErr := json.NewDecoder(resp.Body).Decode(&body); decErr != nil {
		t.Fatalf("failed to decode response: %v", decErr)
	}
	return resp.StatusCode, body
}

func TestRespondSchedulingError_SlotTaken(t *testing.T) {
	status, body := doErrorRequest(t, scheduling.ErrSlotTaken)
	if status != fiber.StatusConflict {
		t.Errorf("expected 409, got %d", status)
	}
	if body.Code != "SLOT_TAKEN" {
		t.Errorf("expected code SLOT_TAKEN, got %q", body.Code)
	}
	if body.Error != "This time slot is no longer available. Please select another time." {
		t.Errorf("unexpected message: %q", body.Error)
	}
}

func TestRespondSchedulingError_BodyUsesErrorKey(t *testing.T) {
	app := fiber.New()
	app.Get("/boom", func(c *fiber.Ctx) error {
		return respondSchedulingError(c, scheduling.ErrDoctorNotFound)
	})

	resp, err := app.Test(httptest.NewRequest("GET", "/boom", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	msg, ok := raw["error"].(string)
	if !ok || msg == "" {
		t.Fatalf("expected non-empty \"error\" field, got %v", raw)
	}
	if _, ok := raw["message"]; ok {
		t.Error("legacy \"message\" field present in error body")
	}
}

func TestRespondSchedulingError_WrappedSentinel(t *testing.T) {
	wrapped := errors.Wrap(scheduling.ErrDoctorNotFound, "lookup failed")
	status, body := doErrorRequest(t, wrapped)
	if status != fiber.StatusNotFound {
		t.Errorf("expected 404 for wrapped sentinel, got %d", status)
	}
	if body.Code != "DOCTOR_NOT_FOUND" {
		t.Errorf("expected code DOCTOR_NOT_FOUND, got %q", body.Code)
	}
}

func TestRespondSchedulingError_StatusMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{scheduling.ErrSlotAlreadyLocked, fiber.StatusConflict, "SLOT_LOCKED"},
		{scheduling.ErrEntryNotWaiting, fiber.StatusConflict, "ENTRY_NOT_WAITING"},
		{scheduling.ErrPatientNotFound, fiber.StatusNotFound, "PATIENT_NOT_FOUND"},
		{scheduling.ErrAppointmentNotFound, fiber.StatusNotFound, "APPOINTMENT_NOT_FOUND"},
		{scheduling.ErrEntryNotFound, fiber.StatusNotFound, "ENTRY_NOT_FOUND"},
		{scheduling.ErrNotAuthorized, fiber.StatusForbidden, "NOT_AUTHORIZED"},
		{scheduling.ErrInvalidDate, fiber.StatusBadRequest, "INVALID_DATE"},
		{scheduling.ErrInvalidTime, fiber.StatusBadRequest, "INVALID_TIME"},
		{scheduling.ErrMissingFields, fiber.StatusBadRequest, "MISSING_FIELDS"},
		{scheduling.ErrUnknownTemplate, fiber.StatusBadRequest, "UNKNOWN_TEMPLATE"},
	}

	for _, tc := range cases {
		status, body := doErrorRequest(t, tc.err)
		if status != tc.status {
			t.Errorf("%v: expected status %d, got %d", tc.err, tc.status, status)
		}
		if body.Code != tc.code {
			t.Errorf("%v: expected code %q, got %q", tc.err, tc.code, body.Code)
		}
	}
}

func TestRespondSchedulingError_UnknownErrorIsOpaque(t *testing.T) {
	status, body := doErrorRequest(t, errors.New("database exploded"))
	if status != fiber.StatusInternalServerError {
		t.Errorf("expected 500, got %d", status)
	}
	if body.Code != "INTERNAL_ERROR" {
		t.Errorf("expected code INTERNAL_ERROR, got %q", body.Code)
	}
	if body.Error == "database exploded" {
		t.Error("internal error detail leaked to the client")
	}
}
