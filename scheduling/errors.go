package scheduling

import "errors"

// Sentinel errors returned by the scheduling services. The handler layer
// maps these onto HTTP statuses and user-facing messages.
var (
	ErrDoctorNotFound      = errors.New("doctor not found")
	ErrPatientNotFound     = errors.New("patient not found")
	ErrAppointmentNotFound = errors.New("appointment not found")
	ErrEntryNotFound       = errors.New("waiting list entry not found")
	ErrEntryNotWaiting     = errors.New("waiting list entry is not in waiting status")
	ErrSlotTaken           = errors.New("slot is no longer available")
	ErrSlotAlreadyLocked   = errors.New("slot is already locked")
	ErrNotAuthorized       = errors.New("not authorized to book for this patient")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidTime         = errors.New("invalid time format")
	ErrUnknownTemplate     = errors.New("unknown schedule template")
	ErrMissingFields       = errors.New("missing required fields")
)
