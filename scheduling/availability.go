package scheduling

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/clinware/backend/models"
)

// Service implements the scheduling subsystem: availability resolution,
// booking, slot locking and waiting-list conversion. One instance per
// process, constructed in main and injected into the handlers.
type Service struct {
	store  Store
	logger *zap.Logger
}

func NewService(store Store, logger *zap.Logger) *Service {
	return &Service{
		store:  store,
		logger: logger,
	}
}

// SlotInfo is one candidate slot in an availability response. Locked is
// reported separately from Available so the UI can distinguish an
// administratively blocked slot from a booked one.
type SlotInfo struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
	Locked    bool   `json:"locked"`
}

// Availability is the resolver output for one doctor and calendar day.
type Availability struct {
	DoctorID    string     `json:"doctor_id"`
	DoctorName  string     `json:"doctor_name"`
	Date        string     `json:"date"`
	DayOfWeek   int        `json:"day_of_week"`
	DayName     string     `json:"day_name"`
	ServiceType string     `json:"service_type,omitempty"`
	Slots       []SlotInfo `json:"slots"`
	Message     string     `json:"message,omitempty"`
	Total       int        `json:"total_slots"`
	Free        int        `json:"available_slots"`
	Booked      int        `json:"booked_slots"`
}

// Availability computes the slot list for a doctor on a calendar date,
// marking each slot booked or locked by cross-referencing existing
// appointments and locked-slot records. serviceType is optional; schedule
// entries without a type tag serve every service.
func (s *Service) Availability(ctx context.Context, doctorID, date, serviceType string) (*Availability, error) {
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}
	// Parsed as UTC midnight, so the same date string maps to the same
	// weekday on every host.
	dayOfWeek := int(day.Weekday())

	doctor, err := s.store.GetDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	result := &Availability{
		DoctorID:    doctor.DoctorID,
		DoctorName:  doctor.Name,
		Date:        date,
		DayOfWeek:   dayOfWeek,
		DayName:     time.Weekday(dayOfWeek).String(),
		ServiceType: serviceType,
		Slots:       []SlotInfo{},
	}

	var lists [][]string
	for _, entry := range doctor.Schedules {
		if entry.DayOfWeek != dayOfWeek {
			continue
		}
		if serviceType != "" && entry.Type != "" && entry.Type != serviceType {
			continue
		}
		lists = append(lists, GenerateSlots(entry.StartTime, entry.EndTime, entry.SlotDuration))
	}

	candidates := mergeSlots(lists...)
	if len(candidates) == 0 {
		result.Message = fmt.Sprintf("%s is not available on %s", doctor.Name, result.DayName)
		return result, nil
	}

	// Broad doctor-only fetch filtered in memory; see AppointmentQuery.
	appointments, err := s.store.Appointments(ctx, AppointmentQuery{DoctorID: doctorID})
	if err != nil {
		return nil, fmt.Errorf("fetch appointments: %w", err)
	}

	booked := make(map[string]bool)
	for _, appt := range appointments {
		if appt.Status != models.AppointmentScheduled && appt.Status != models.AppointmentCompleted {
			continue
		}
		if FormatDate(appt.AppointmentDate) != date {
			continue
		}
		booked[appt.AppointmentTime] = true
	}

	// Lock data is supplementary: if the lookup fails we log and continue
	// with only the appointment check rather than failing the request.
	locked := make(map[string]bool)
	locks, err := s.store.LockedSlots(ctx, doctorID, date)
	if err != nil {
		s.logger.Warn("locked slot lookup failed, continuing without locks",
			zap.String("doctor_id", doctorID),
			zap.String("date", date),
			zap.Error(err))
	} else {
		for _, lock := range locks {
			locked[lock.Time] = true
		}
	}

	for _, slot := range candidates {
		info := SlotInfo{
			Time:      slot,
			Available: !booked[slot] && !locked[slot],
			Locked:    locked[slot],
		}
		result.Slots = append(result.Slots, info)
		result.Total++
		if info.Available {
			result.Free++
		} else {
			result.Booked++
		}
	}

	return result, nil
}

// LockSlot creates an administrative block on a slot. Locking a slot that
// already has a lock for the same doctor, date and time is a conflict.
func (s *Service) LockSlot(ctx context.Context, doctorID, date, slotTime, reason string, actor Actor) (*models.LockedSlot, error) {
	if doctorID == "" || date == "" || slotTime == "" {
		return nil, ErrMissingFields
	}
	if _, err := ParseDate(date); err != nil {
		return nil, err
	}
	normalized, err := NormalizeClockTime(slotTime)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.GetDoctor(ctx, doctorID); err != nil {
		return nil, err
	}

	existing, err := s.store.LockedSlots(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("fetch locked slots: %w", err)
	}
	for _, lock := range existing {
		if lock.Time == normalized {
			return nil, ErrSlotAlreadyLocked
		}
	}

	lock := &models.LockedSlot{
		LockID:    newID(),
		DoctorID:  doctorID,
		Date:      date,
		Time:      normalized,
		Reason:    reason,
		CreatedBy: actor.AuthID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.AddLockedSlot(ctx, lock); err != nil {
		return nil, fmt.Errorf("create locked slot: %w", err)
	}

	s.logger.Info("slot locked",
		zap.String("doctor_id", doctorID),
		zap.String("date", date),
		zap.String("time", normalized),
		zap.String("locked_by", actor.AuthID))

	return lock, nil
}

// UnlockSlot removes an administrative block.
func (s *Service) UnlockSlot(ctx context.Context, lockID string) error {
	if err := s.store.DeleteLockedSlot(ctx, lockID); err != nil {
		return fmt.Errorf("delete locked slot: %w", err)
	}
	return nil
}
