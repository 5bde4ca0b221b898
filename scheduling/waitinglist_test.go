package scheduling

import (
	"context"
	"errors"
	"testing"

	"github.com/clinware/backend/models"
)

func TestAddToWaitingList_AutoPriority(t *testing.T) {
	store := newMemStore()
	seedBookingFixtures(store)
	svc := newTestService(store)

	first, err := svc.AddToWaitingList(context.Background(), WaitingListRequest{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
	}, adminActor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Priority != 1 {
		t.Errorf("expected first entry priority 1, got %d", first.Priority)
	}
	if first.Status != models.WaitingStatusWaiting {
		t.Errorf("expected status waiting, got %s", first.Status)
	}
	if first.PatientName != "Asha Verma" || first.DoctorName != "Dr. Rao" {
		t.Errorf("expected denormalized names, got %q / %q", first.PatientName, first.DoctorName)
	}

	second, err := svc.AddToWaitingList(context.Background(), WaitingListRequest{
		PatientID: "pat-2",
		DoctorID:  "doc-1",
	}, adminActor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if second.Priority != 2 {
		t.Errorf("expected second entry priority 2, got %d", second.Priority)
	}
}

func TestAddToWaitingList_ExplicitPriorityKept(t *testing.T) {
	store := newMemStore()
	seedBookingFixtures(store)
	svc := newTestService(store)

	entry, err := svc.AddToWaitingList(context.Background(), WaitingListRequest{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		Priority:  7,
	}, adminActor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Priority != 7 {
		t.Errorf("expected explicit priority 7, got %d", entry.Priority)
	}
}

func TestConvertWaitingEntry_Success(t *testing.T) {
	store := newMemStore()
	seedBookingFixtures(store)
	svc := newTestService(store)

	entry, err := svc.AddToWaitingList(context.Background(), WaitingListRequest{
		PatientID:   "pat-1",
		DoctorID:    "doc-1",
		ServiceType: "general",
	}, adminActor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	appt, err := svc.ConvertWaitingEntry(context.Background(), entry.EntryID, monday, "09:00", adminActor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if appt.Status != models.AppointmentScheduled {
		t.Errorf("expected scheduled appointment, got %s", appt.Status)
	}
	if appt.ServiceType != "general" {
		t.Errorf("expected service type carried over, got %q", appt.ServiceType)
	}
	if _, ok := store.waiting[entry.EntryID]; ok {
		t.Error("entry must be removed after successful conversion")
	}
}

func TestConvertWaitingEntry_SlotTakenKeepsEntry(t *testing.T) {
	store := newMemStore()
	seedBookingFixtures(store)
	store.appointments = append(store.appointments, models.Appointment{
		AppointmentID:   "appt-1",
		DoctorID:        "doc-1",
		AppointmentDate: mustDate(t, monday),
		AppointmentTime: "09:00",
		Status:          models.AppointmentScheduled,
	})
	svc := newTestService(store)

	entry, err := svc.AddToWaitingList(context.Background(), WaitingListRequest{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
	}, adminActor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = svc.ConvertWaitingEntry(context.Background(), entry.EntryID, monday, "09:00", adminActor)
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken, got %v", err)
	}

	kept, ok := store.waiting[entry.EntryID]
	if !ok {
		t.Fatal("entry must survive a failed conversion")
	}
	if kept.Status != models.WaitingStatusWaiting {
		t.Errorf("entry must remain waiting, got %s", kept.Status)
	}
	if len(store.appointments) != 1 {
		t.Errorf("failed conversion must not create an appointment, got %d", len(store.appointments))
	}
}

func TestConvertWaitingEntry_NotWaiting(t *testing.T) {
	store := newMemStore()
	seedBookingFixtures(store)
	store.waiting["entry-1"] = models.WaitingListEntry{
		EntryID:   "entry-1",
		PatientID: "pat-1",
		DoctorID:  "doc-1",
		Status:    models.WaitingStatusCancelled,
	}
	svc := newTestService(store)

	_, err := svc.ConvertWaitingEntry(context.Background(), "entry-1", monday, "09:00", adminActor)
	if !errors.Is(err, ErrEntryNotWaiting) {
		t.Errorf("expected ErrEntryNotWaiting, got %v", err)
	}
}

func TestConvertWaitingEntry_NotFound(t *testing.T) {
	svc := newTestService(newMemStore())
	_, err := svc.ConvertWaitingEntry(context.Background(), "ghost", monday, "09:00", adminActor)
	if !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("expected ErrEntryNotFound, got %v", err)
	}
}

func TestConvertWaitingEntry_AdminEquivalent(t *testing.T) {
	// Conversion is a staff action: it succeeds even when the acting
	// staff member does not own the patient record.
	store := newMemStore()
	seedBookingFixtures(store)
	svc := newTestService(store)

	entry, err := svc.AddToWaitingList(context.Background(), WaitingListRequest{
		PatientID: "pat-1",
		DoctorID:  "doc-1",
	}, adminActor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	staff := Actor{AuthID: "auth-front-desk", Role: models.RoleStaff}
	if _, err := svc.ConvertWaitingEntry(context.Background(), entry.EntryID, monday, "09:30", staff); err != nil {
		t.Fatalf("staff conversion failed: %v", err)
	}
}
