package models

import (
	"time"

	"github.com/google/uuid"
)

// Appointment statuses. A "scheduled" or "completed" appointment occupies
// its slot; every other status leaves the slot free.
const (
	AppointmentPending   = "pending"
	AppointmentScheduled = "scheduled"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
	AppointmentNoShow    = "no-show"
)

// Waiting list entry statuses.
const (
	WaitingStatusWaiting   = "waiting"
	WaitingStatusNotified  = "notified"
	WaitingStatusBooked    = "booked" // reserved for clients; the server deletes entries on conversion
	WaitingStatusCancelled = "cancelled"
)

// User roles stored in Postgres.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
	RoleUser  = "user"
)

// DoctorSchedule is one recurring weekly availability window. DayOfWeek
// uses 0 = Sunday. Times are zero-padded HH:MM in clinic-local time.
// Type is a service-type tag; empty means the window serves all services.
type DoctorSchedule struct {
	DayOfWeek    int    `json:"day_of_week" bson:"day_of_week"`
	StartTime    string `json:"start_time" bson:"start_time"`
	EndTime      string `json:"end_time" bson:"end_time"`
	SlotDuration int    `json:"slot_duration" bson:"slot_duration"`
	Type         string `json:"type,omitempty" bson:"type,omitempty"`
}

type Doctor struct {
	DoctorID      string           `json:"doctor_id" bson:"doctor_id"`
	Name          string           `json:"name" bson:"name"`
	Speciality    string           `json:"speciality,omitempty" bson:"speciality,omitempty"`
	Qualification string           `json:"qualification,omitempty" bson:"qualification,omitempty"`
	Email         string           `json:"email,omitempty" bson:"email,omitempty"`
	Mobile        string           `json:"mobile,omitempty" bson:"mobile,omitempty"`
	PhotoURL      string           `json:"photo_url,omitempty" bson:"photo_url,omitempty"`
	Schedules     []DoctorSchedule `json:"schedules,omitempty" bson:"schedules,omitempty"`
	IsActive      bool             `json:"is_active" bson:"is_active"`
	CreatedAt     time.Time        `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

type Patient struct {
	PatientID  string    `json:"patient_id" bson:"patient_id"`
	Name       string    `json:"name" bson:"name"`
	Email      string    `json:"email,omitempty" bson:"email,omitempty"`
	Mobile     string    `json:"mobile,omitempty" bson:"mobile,omitempty"`
	Gender     string    `json:"gender,omitempty" bson:"gender,omitempty"`
	Age        int       `json:"age,omitempty" bson:"age,omitempty"`
	BloodGroup string    `json:"blood_group,omitempty" bson:"blood_group,omitempty"`
	Address    string    `json:"address,omitempty" bson:"address,omitempty"`
	Allergies  []string  `json:"allergies,omitempty" bson:"allergies,omitempty"`
	AuthID     string    `json:"auth_id,omitempty" bson:"auth_id,omitempty"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// Appointment is the booked unit. AppointmentTime (HH:MM) is authoritative
// for slot matching; the time-of-day inside AppointmentDate is ignored.
type Appointment struct {
	AppointmentID   string    `json:"appointment_id" bson:"appointment_id"`
	PatientID       string    `json:"patient_id" bson:"patient_id"`
	DoctorID        string    `json:"doctor_id" bson:"doctor_id"`
	PatientName     string    `json:"patient_name" bson:"patient_name"`
	DoctorName      string    `json:"doctor_name" bson:"doctor_name"`
	AppointmentDate time.Time `json:"appointment_date" bson:"appointment_date"`
	AppointmentTime string    `json:"appointment_time" bson:"appointment_time"`
	ServiceType     string    `json:"service_type,omitempty" bson:"service_type,omitempty"`
	Duration        int       `json:"duration" bson:"duration"`
	Status          string    `json:"status" bson:"status"`
	Notes           string    `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedBy       string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// LockedSlot is an administratively blocked slot, independent of any
// appointment. Date is the calendar day as YYYY-MM-DD.
type LockedSlot struct {
	LockID    string    `json:"lock_id" bson:"lock_id"`
	DoctorID  string    `json:"doctor_id" bson:"doctor_id"`
	Date      string    `json:"date" bson:"date"`
	Time      string    `json:"time" bson:"time"`
	Reason    string    `json:"reason,omitempty" bson:"reason,omitempty"`
	CreatedBy string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// WaitingListEntry queues a patient for a doctor/service until staff
// convert it into a concrete appointment. Lower priority is served first.
type WaitingListEntry struct {
	EntryID       string    `json:"entry_id" bson:"entry_id"`
	PatientID     string    `json:"patient_id" bson:"patient_id"`
	DoctorID      string    `json:"doctor_id" bson:"doctor_id"`
	PatientName   string    `json:"patient_name,omitempty" bson:"patient_name,omitempty"`
	DoctorName    string    `json:"doctor_name,omitempty" bson:"doctor_name,omitempty"`
	ServiceType   string    `json:"service_type,omitempty" bson:"service_type,omitempty"`
	PreferredDate string    `json:"preferred_date,omitempty" bson:"preferred_date,omitempty"`
	Status        string    `json:"status" bson:"status"`
	Priority      int       `json:"priority" bson:"priority"`
	Notes         string    `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedBy     string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

type NewsPost struct {
	NewsID    string    `json:"news_id" bson:"news_id"`
	Title     string    `json:"title" bson:"title"`
	Body      string    `json:"body" bson:"body"`
	ImageURL  string    `json:"image_url,omitempty" bson:"image_url,omitempty"`
	Published bool      `json:"published" bson:"published"`
	CreatedBy string    `json:"created_by,omitempty" bson:"created_by,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty" bson:"updated_at,omitempty"`
}

// FileObject is the stored metadata for a blob uploaded to MinIO.
type FileObject struct {
	FileID      string    `json:"file_id" bson:"file_id"`
	Name        string    `json:"name" bson:"name"`
	Bucket      string    `json:"bucket" bson:"bucket"`
	ObjectKey   string    `json:"object_key" bson:"object_key"`
	ContentType string    `json:"content_type,omitempty" bson:"content_type,omitempty"`
	Size        int64     `json:"size" bson:"size"`
	UploadedBy  string    `json:"uploaded_by,omitempty" bson:"uploaded_by,omitempty"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
}

// User is an account record kept in Postgres.
type User struct {
	UserID    uuid.UUID `json:"user_id"`
	AuthID    string    `json:"auth_id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	Mobile    string    `json:"mobile,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}
