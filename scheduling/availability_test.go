package scheduling

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/clinware/backend/models"
)

func newTestService(store Store) *Service {
	return NewService(store, zap.NewNop())
}

// seedDoctor installs Dr. Rao with a Monday 09:00-10:00 window of
// 30-minute slots.
func seedDoctor(store *memStore) {
	store.doctors["doc-1"] = models.Doctor{
		DoctorID: "doc-1",
		Name:     "Dr. Rao",
		IsActive: true,
		Schedules: []models.DoctorSchedule{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", SlotDuration: 30},
		},
	}
}

// 2024-03-11 is a Monday.
const monday = "2024-03-11"

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := ParseDate(s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func TestAvailability_AllFree(t *testing.T) {
	store := newMemStore()
	seedDoctor(store)
	svc := newTestService(store)

	got, err := svc.Availability(context.Background(), "doc-1", monday, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DayOfWeek != 1 || got.DayName != "Monday" {
		t.Errorf("expected Monday (1), got %s (%d)", got.DayName, got.DayOfWeek)
	}
	if len(got.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(got.Slots))
	}
	for _, slot := range got.Slots {
		if !slot.Available || slot.Locked {
			t.Errorf("expected slot %s free and unlocked, got %+v", slot.Time, slot)
		}
	}
	if got.Total != 2 || got.Free != 2 || got.Booked != 0 {
		t.Errorf("bad counts: total=%d free=%d booked=%d", got.Total, got.Free, got.Booked)
	}
}

func TestAvailability_EveningScenario(t *testing.T) {
	// Monday 17:00-20:00 at 15 minutes: 12 slots, 17:00 through 19:45.
	store := newMemStore()
	store.doctors["doc-x"] = models.Doctor{
		DoctorID: "doc-x",
		Name:     "Dr. X",
		Schedules: []models.DoctorSchedule{
			{DayOfWeek: 1, StartTime: "17:00", EndTime: "20:00", SlotDuration: 15},
		},
	}
	svc := newTestService(store)

	got, err := svc.Availability(context.Background(), "doc-x", monday, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Slots) != 12 {
		t.Fatalf("expected 12 slots, got %d", len(got.Slots))
	}
	if got.Slots[0].Time != "17:00" {
		t.Errorf("expected first slot 17:00, got %s", got.Slots[0].Time)
	}
	if got.Slots[11].Time != "19:45" {
		t.Errorf("expected last slot 19:45, got %s", got.Slots[11].Time)
	}
	for _, slot := range got.Slots {
		if !slot.Available {
			t.Errorf("expected slot %s available with no bookings", slot.Time)
		}
	}
}

func TestAvailability_BookedSlotExcluded(t *testing.T) {
	store := newMemStore()
	seedDoctor(store)
	store.appointments = append(store.appointments, models.Appointment{
		AppointmentID:   "appt-1",
		DoctorID:        "doc-1",
		AppointmentDate: mustDate(t, monday),
		AppointmentTime: "09:00",
		Status:          models.AppointmentScheduled,
	})
	svc := newTestService(store)

	got, err := svc.Availability(context.Background(), "doc-1", monday, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Slots[0].Time != "09:00" || got.Slots[0].Available {
		t.Errorf("expected 09:00 unavailable, got %+v", got.Slots[0])
	}
	if !got.Slots[1].Available {
		t.Errorf("expected 09:30 still available, got %+v", got.Slots[1])
	}
	if got.Free != 1 || got.Booked != 1 {
		t.Errorf("bad counts: free=%d booked=%d", got.Free, got.Booked)
	}
}

func TestAvailability_CancelledDoesNotBlock(t *testing.T) {
	store := newMemStore()
	seedDoctor(store)
	store.appointments = append(store.appointments, models.Appointment{
		AppointmentID:   "appt-1",
		DoctorID:        "doc-1",
		AppointmentDate: mustDate(t, monday),
		AppointmentTime: "09:00",
		Status:          models.AppointmentCancelled,
	})
	svc := newTestService(store)

	got, err := svc.Availability(context.Background(), "doc-1", monday, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Slots[0].Available {
		t.Error("cancelled appointment must not occupy the slot")
	}
}

func TestAvailability_OtherDateDoesNotBlock(t *testing.T) {
	store := newMemStore()
	seedDoctor(store)
	// Booked the following Monday; target Monday stays free.
	store.appointments = append(store.appointments, models.Appointment{
		AppointmentID:   "appt-1",
		DoctorID:        "doc-1",
		AppointmentDate: mustDate(t, "2024-03-18"),
		AppointmentTime: "09:00",
		Status:          models.AppointmentScheduled,
	})
	svc := newTestService(store)

	got, err := svc.Availability(context.Background(), "doc-1", monday, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Slots[0].Available {
		t.Error("appointment on another date must not occupy the slot")
	}
}

func TestAvailability_LockedSlot(t *testing.T) {
	store := newMemStore()
	seedDoctor(store)
	store.locks = append(store.locks, models.LockedSlot{
		LockID:   "lock-1",
		DoctorID: "doc-1",
		Date:     monday,
		Time:     "09:00",
		Reason:   "equipment maintenance",
	})
	svc := newTestService(store)

	got, err := svc.Availability(context.Background(), "doc-1", monday, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	slot := got.Slots[0]
	if slot.Available {
		t.Error("locked slot must be unavailable")
	}
	if !slot.Locked {
		t.Error("locked slot must carry the locked flag")
	}
	if got.Slots[1].Locked {
		t.Error("unlocked slot must not carry the locked flag")
	}
}

func TestAvailability_LockLookupFailureTolerated(t *testing.T) {
	store := newMemStore()
	seedDoctor(store)
	store.lockErr = errors.New("store unavailable")
	svc := newTestService(store)

	got, err := svc.Availability(context.Background(), "doc-1", monday, "")
	if err != nil {
		t.Fatalf("lock lookup failure must not fail the request: %v", err)
	}
	for _, slot := range got.Slots {
		if slot.Locked {
			t.Error("expected empty locked-set when lock lookup fails")
		}
	}
}

func TestAvailability_NoScheduleForDay(t *testing.T) {
	store := newMemStore()
	seedDoctor(store)
	svc := newTestService(store)

	// 2024-03-12 is a Tuesday; Dr. Rao only works Mondays.
	got, err := svc.Availability(context.Background(), "doc-1", "2024-03-12", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Slots) != 0 {
		t.Errorf("expected no slots, got %d", len(got.Slots))
	}
	if got.Message == "" {
		t.Error("expected a human-readable not-available message")
	}
}

func TestAvailability_ServiceTypeFilter(t *testing.T) {
	store := newMemStore()
	store.doctors["doc-2"] = models.Doctor{
		DoctorID: "doc-2",
		Name:     "Dr. Sen",
		Schedules: []models.DoctorSchedule{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", SlotDuration: 30, Type: "dental"},
			{DayOfWeek: 1, StartTime: "14:00", EndTime: "15:00", SlotDuration: 30},
		},
	}
	svc := newTestService(store)

	// Untagged entries are universally available, so a "general" request
	// sees only the afternoon block.
	got, err := svc.Availability(context.Background(), "doc-2", monday, "general")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Slots) != 2 {
		t.Fatalf("expected 2 slots from the untagged entry, got %d", len(got.Slots))
	}
	if got.Slots[0].Time != "14:00" {
		t.Errorf("expected 14:00 first, got %s", got.Slots[0].Time)
	}

	// A "dental" request sees both blocks.
	got, err = svc.Availability(context.Background(), "doc-2", monday, "dental")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got.Slots) != 4 {
		t.Errorf("expected 4 slots for dental, got %d", len(got.Slots))
	}
}

func TestAvailability_OverlappingEntriesDeduplicated(t *testing.T) {
	store := newMemStore()
	store.doctors["doc-3"] = models.Doctor{
		DoctorID: "doc-3",
		Name:     "Dr. Iyer",
		Schedules: []models.DoctorSchedule{
			{DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", SlotDuration: 30},
			{DayOfWeek: 1, StartTime: "09:30", EndTime: "10:30", SlotDuration: 30},
		},
	}
	svc := newTestService(store)

	got, err := svc.Availability(context.Background(), "doc-3", monday, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"09:00", "09:30", "10:00"}
	if len(got.Slots) != len(want) {
		t.Fatalf("expected %d de-duplicated slots, got %d", len(want), len(got.Slots))
	}
	for i, slot := range got.Slots {
		if slot.Time != want[i] {
			t.Errorf("slot %d: expected %s, got %s", i, want[i], slot.Time)
		}
	}
}

func TestAvailability_DoctorNotFound(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.Availability(context.Background(), "ghost", monday, "")
	if !errors.Is(err, ErrDoctorNotFound) {
		t.Errorf("expected ErrDoctorNotFound, got %v", err)
	}
}

func TestAvailability_MalformedDate(t *testing.T) {
	store := newMemStore()
	seedDoctor(store)
	svc := newTestService(store)
	_, err := svc.Availability(context.Background(), "doc-1", "11/03/2024", "")
	if !errors.Is(err, ErrInvalidDate) {
		t.Errorf("expected ErrInvalidDate, got %v", err)
	}
}

func TestLockSlot_Conflict(t *testing.T) {
	store := newMemStore()
	seedDoctor(store)
	svc := newTestService(store)
	actor := Actor{AuthID: "admin-1", Role: models.RoleAdmin}

	lock, err := svc.LockSlot(context.Background(), "doc-1", monday, "9:0", "maintenance", actor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lock.Time != "09:00" {
		t.Errorf("expected normalized time 09:00, got %s", lock.Time)
	}

	if _, err := svc.LockSlot(context.Background(), "doc-1", monday, "09:00", "again", actor); !errors.Is(err, ErrSlotAlreadyLocked) {
		t.Errorf("expected ErrSlotAlreadyLocked, got %v", err)
	}
}

func TestUnlockSlot(t *testing.T) {
	store := newMemStore()
	seedDoctor(store)
	svc := newTestService(store)
	actor := Actor{AuthID: "admin-1", Role: models.RoleAdmin}

	lock, err := svc.LockSlot(context.Background(), "doc-1", monday, "09:30", "", actor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := svc.UnlockSlot(context.Background(), lock.LockID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := svc.Availability(context.Background(), "doc-1", monday, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, slot := range got.Slots {
		if slot.Locked {
			t.Errorf("slot %s still locked after unlock", slot.Time)
		}
	}
}
