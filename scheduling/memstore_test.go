package scheduling

import (
	"context"
	"errors"

	"github.com/clinware/backend/models"
)

// memStore is an in-memory Store used by the service tests.
type memStore struct {
	doctors      map[string]models.Doctor
	patients     map[string]models.Patient
	appointments []models.Appointment
	locks        []models.LockedSlot
	waiting      map[string]models.WaitingListEntry

	lockErr error // forces LockedSlots to fail
}

func newMemStore() *memStore {
	return &memStore{
		doctors:  make(map[string]models.Doctor),
		patients: make(map[string]models.Patient),
		waiting:  make(map[string]models.WaitingListEntry),
	}
}

func (m *memStore) GetDoctor(_ context.Context, doctorID string) (*models.Doctor, error) {
	d, ok := m.doctors[doctorID]
	if !ok {
		return nil, ErrDoctorNotFound
	}
	return &d, nil
}

func (m *memStore) GetPatient(_ context.Context, patientID string) (*models.Patient, error) {
	p, ok := m.patients[patientID]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (m *memStore) Appointments(_ context.Context, q AppointmentQuery) ([]models.Appointment, error) {
	var out []models.Appointment
	for _, a := range m.appointments {
		if a.DoctorID == q.DoctorID {
			out = append(out, a)
		}
	}
	if q.Date != nil {
		out = FilterByDate(out, *q.Date)
	}
	return out, nil
}

func (m *memStore) AddAppointment(_ context.Context, appt *models.Appointment) error {
	m.appointments = append(m.appointments, *appt)
	return nil
}

func (m *memStore) LockedSlots(_ context.Context, doctorID, date string) ([]models.LockedSlot, error) {
	if m.lockErr != nil {
		return nil, m.lockErr
	}
	var out []models.LockedSlot
	for _, l := range m.locks {
		if l.DoctorID == doctorID && l.Date == date {
			out = append(out, l)
		}
	}
	return out, nil
}

func (m *memStore) AddLockedSlot(_ context.Context, lock *models.LockedSlot) error {
	m.locks = append(m.locks, *lock)
	return nil
}

func (m *memStore) DeleteLockedSlot(_ context.Context, lockID string) error {
	for i, l := range m.locks {
		if l.LockID == lockID {
			m.locks = append(m.locks[:i], m.locks[i+1:]...)
			return nil
		}
	}
	return errors.New("locked slot not found")
}

func (m *memStore) GetWaitingEntry(_ context.Context, entryID string) (*models.WaitingListEntry, error) {
	e, ok := m.waiting[entryID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return &e, nil
}

func (m *memStore) WaitingEntriesByDoctor(_ context.Context, doctorID string) ([]models.WaitingListEntry, error) {
	var out []models.WaitingListEntry
	for _, e := range m.waiting {
		if e.DoctorID == doctorID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) AddWaitingEntry(_ context.Context, entry *models.WaitingListEntry) error {
	m.waiting[entry.EntryID] = *entry
	return nil
}

func (m *memStore) DeleteWaitingEntry(_ context.Context, entryID string) error {
	if _, ok := m.waiting[entryID]; !ok {
		return ErrEntryNotFound
	}
	delete(m.waiting, entryID)
	return nil
}
