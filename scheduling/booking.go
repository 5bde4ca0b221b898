package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clinware/backend/models"
)

func newID() string {
	return uuid.New().String()
}

// BookingRequest carries a booking attempt. AppointmentDate is left
// untyped because callers legitimately send a time.Time, an ISO string or
// a serialized-timestamp object; NormalizeDate canonicalizes it before any
// business logic runs.
type BookingRequest struct {
	PatientID       string `json:"patient_id"`
	DoctorID        string `json:"doctor_id"`
	AppointmentDate any    `json:"appointment_date"`
	AppointmentTime string `json:"appointment_time"`
	ServiceType     string `json:"service_type"`
	Duration        int    `json:"duration"`
	Notes           string `json:"notes"`
}

// Book validates and persists a new appointment in status "scheduled",
// enforcing at most one active appointment per doctor, date and time.
//
// The availability re-check and the insert are two separate store calls
// with no lock between them, so two truly concurrent requests for the same
// slot can both pass the check. That matches the deployment this targets
// (request-per-invocation, low concurrency); the Mongo adapter's unique
// index is the backstop for the narrow window that remains.
func (s *Service) Book(ctx context.Context, req BookingRequest, actor Actor) (*models.Appointment, error) {
	if req.PatientID == "" || req.DoctorID == "" || req.AppointmentDate == nil {
		return nil, ErrMissingFields
	}

	patient, err := s.store.GetPatient(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	doctor, err := s.store.GetDoctor(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}

	// Non-admin actors may only book for their own patient record.
	if !actor.IsAdmin() && patient.AuthID != actor.AuthID {
		s.logger.Warn("booking rejected: actor does not own patient record",
			zap.String("auth_id", actor.AuthID),
			zap.String("patient_id", req.PatientID))
		return nil, ErrNotAuthorized
	}

	date, err := NormalizeDate(req.AppointmentDate)
	if err != nil {
		return nil, err
	}

	slotTime := req.AppointmentTime
	if slotTime != "" {
		slotTime, err = NormalizeClockTime(slotTime)
		if err != nil {
			return nil, err
		}
		if err := s.checkSlotFree(ctx, req.DoctorID, date, slotTime); err != nil {
			return nil, err
		}
	}

	duration := req.Duration
	if duration <= 0 {
		duration = DefaultSlotDuration
	}

	now := time.Now().UTC()
	appt := &models.Appointment{
		AppointmentID:   newID(),
		PatientID:       patient.PatientID,
		DoctorID:        doctor.DoctorID,
		PatientName:     patient.Name,
		DoctorName:      doctor.Name,
		AppointmentDate: date,
		AppointmentTime: slotTime,
		ServiceType:     req.ServiceType,
		Duration:        duration,
		Status:          models.AppointmentScheduled,
		Notes:           req.Notes,
		CreatedBy:       actor.AuthID,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.store.AddAppointment(ctx, appt); err != nil {
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	s.logger.Info("appointment booked",
		zap.String("appointment_id", appt.AppointmentID),
		zap.String("doctor_id", appt.DoctorID),
		zap.String("patient_id", appt.PatientID),
		zap.String("date", FormatDate(date)),
		zap.String("time", slotTime))

	return appt, nil
}

// checkSlotFree is the race-prevention gate: fetch the doctor's
// appointments and reject if any active one already occupies the slot.
// Stored dates are normalized through the same tolerant path as inputs so
// legacy records in any of the three shapes compare correctly.
func (s *Service) checkSlotFree(ctx context.Context, doctorID string, date time.Time, slotTime string) error {
	appointments, err := s.store.Appointments(ctx, AppointmentQuery{DoctorID: doctorID})
	if err != nil {
		return fmt.Errorf("check slot availability: %w", err)
	}

	target := FormatDate(date)
	for _, appt := range appointments {
		if appt.Status != models.AppointmentScheduled && appt.Status != models.AppointmentCompleted {
			continue
		}
		if FormatDate(appt.AppointmentDate) != target {
			continue
		}
		if appt.AppointmentTime == slotTime {
			return ErrSlotTaken
		}
	}
	return nil
}
