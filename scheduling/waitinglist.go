package scheduling

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clinware/backend/models"
)

// WaitingListRequest adds a patient to a doctor's waiting list. Priority
// zero means "assign automatically" (after the current queue tail).
type WaitingListRequest struct {
	PatientID     string `json:"patient_id"`
	DoctorID      string `json:"doctor_id"`
	ServiceType   string `json:"service_type"`
	PreferredDate string `json:"preferred_date"`
	Priority      int    `json:"priority"`
	Notes         string `json:"notes"`
}

// AddToWaitingList creates a waiting-list entry with denormalized
// patient/doctor names. When no priority is supplied the entry is placed
// after the doctor's current waiting entries (max priority + 1).
func (s *Service) AddToWaitingList(ctx context.Context, req WaitingListRequest, actor Actor) (*models.WaitingListEntry, error) {
	if req.PatientID == "" || req.DoctorID == "" {
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

	priority := req.Priority
	if priority <= 0 {
		entries, err := s.store.WaitingEntriesByDoctor(ctx, req.DoctorID)
		if err != nil {
			return nil, fmt.Errorf("fetch waiting list: %w", err)
		}
		maxPriority := 0
		for _, entry := range entries {
			if entry.Status == models.WaitingStatusWaiting && entry.Priority > maxPriority {
				maxPriority = entry.Priority
			}
		}
		priority = maxPriority + 1
	}

	now := time.Now().UTC()
	entry := &models.WaitingListEntry{
		EntryID:       newID(),
		PatientID:     patient.PatientID,
		DoctorID:      doctor.DoctorID,
		PatientName:   patient.Name,
		DoctorName:    doctor.Name,
		ServiceType:   req.ServiceType,
		PreferredDate: req.PreferredDate,
		Status:        models.WaitingStatusWaiting,
		Priority:      priority,
		Notes:         req.Notes,
		CreatedBy:     actor.AuthID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.store.AddWaitingEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("create waiting list entry: %w", err)
	}

	s.logger.Info("waiting list entry created",
		zap.String("entry_id", entry.EntryID),
		zap.String("doctor_id", entry.DoctorID),
		zap.String("patient_id", entry.PatientID),
		zap.Int("priority", entry.Priority))

	return entry, nil
}

// ConvertWaitingEntry promotes a waiting-list entry into a concrete
// appointment at the supplied date and time, then removes the entry.
// Booking runs first: a failed booking (slot taken, doctor gone) leaves
// the entry untouched so the patient is never silently dropped from the
// queue.
func (s *Service) ConvertWaitingEntry(ctx context.Context, entryID string, date any, slotTime string, actor Actor) (*models.Appointment, error) {
	entry, err := s.store.GetWaitingEntry(ctx, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.WaitingStatusWaiting {
		return nil, ErrEntryNotWaiting
	}

	// Conversion is always a staff action, so the booking runs with
	// admin-equivalent rights regardless of who owns the patient record.
	appt, err := s.Book(ctx, BookingRequest{
		PatientID:       entry.PatientID,
		DoctorID:        entry.DoctorID,
		AppointmentDate: date,
		AppointmentTime: slotTime,
		ServiceType:     entry.ServiceType,
		Duration:        DefaultSlotDuration,
		Notes:           entry.Notes,
	}, Actor{AuthID: actor.AuthID, Role: models.RoleAdmin})
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteWaitingEntry(ctx, entry.EntryID); err != nil {
		// The appointment exists; losing the delete leaves a stale entry
		// rather than a lost booking. Surface the error for the caller.
		s.logger.Error("booked from waiting list but failed to remove entry",
			zap.String("entry_id", entry.EntryID),
			zap.String("appointment_id", appt.AppointmentID),
			zap.Error(err))
		return appt, fmt.Errorf("remove waiting list entry: %w", err)
	}

	s.logger.Info("waiting list entry converted",
		zap.String("entry_id", entry.EntryID),
		zap.String("appointment_id", appt.AppointmentID))

	return appt, nil
}
