package scheduling

import (
	"context"
	"time"

	"github.com/clinware/backend/models"
)

// AppointmentQuery narrows an appointment lookup. DoctorID is always set.
// When Date is set the adapter returns only appointments on that calendar
// day; the Mongo adapter still fetches by doctor_id alone and applies
// FilterByDate in memory to keep to single-field indexes.
type AppointmentQuery struct {
	DoctorID string
	Date     *time.Time
}

// Store contains the persistence operations the scheduling services need.
// Implemented by store.Mongo in production and by an in-memory fake in
// tests.
type Store interface {
	GetDoctor(ctx context.Context, doctorID string) (*models.Doctor, error)
	GetPatient(ctx context.Context, patientID string) (*models.Patient, error)

	Appointments(ctx context.Context, q AppointmentQuery) ([]models.Appointment, error)
	AddAppointment(ctx context.Context, appt *models.Appointment) error

	LockedSlots(ctx context.Context, doctorID, date string) ([]models.LockedSlot, error)
	AddLockedSlot(ctx context.Context, lock *models.LockedSlot) error
	DeleteLockedSlot(ctx context.Context, lockID string) error

	GetWaitingEntry(ctx context.Context, entryID string) (*models.WaitingListEntry, error)
	WaitingEntriesByDoctor(ctx context.Context, doctorID string) ([]models.WaitingListEntry, error)
	AddWaitingEntry(ctx context.Context, entry *models.WaitingListEntry) error
	DeleteWaitingEntry(ctx context.Context, entryID string) error
}

// Actor is the authenticated identity performing an operation, as
// extracted by the auth middleware.
type Actor struct {
	AuthID string
	Role   string
}

// IsAdmin reports whether the actor may act on behalf of any patient.
func (a Actor) IsAdmin() bool {
	return a.Role == models.RoleAdmin || a.Role == models.RoleStaff
}
