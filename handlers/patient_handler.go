package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.uber.org/zap"

	"github.com/clinware/backend/models"
	"github.com/clinware/backend/store"
	"github.com/clinware/backend/utils"
)

// PatientHandler manages patient records. Patient IDs are short
// human-readable codes generated server side.
type PatientHandler struct {
	store  *store.Mongo
	idGen  *utils.IDGenerator
	logger *zap.Logger
}

func NewPatientHandler(st *store.Mongo, idGen *utils.IDGenerator, logger *zap.Logger) *PatientHandler {
	return &PatientHandler{
		store:  st,
		idGen:  idGen,
		logger: logger,
	}
}

// nextPatientID generates an ID that is unused both in memory and in the
// patients collection.
func (h *PatientHandler) nextPatientID(c *fiber.Ctx) (string, error) {
	for attempts := 0; attempts < 5; attempts++ {
		id, err := h.idGen.GenerateID()
		if err != nil {
			return "", err
		}
		exists, err := h.store.PatientIDExists(c.Context(), id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	return "", fiber.NewError(fiber.StatusInternalServerError, "could not allocate patient ID")
}

type createPatientRequest struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Mobile     string   `json:"mobile"`
	Gender     string   `json:"gender"`
	Age        int      `json:"age"`
	BloodGroup string   `json:"blood_group"`
	Address    string   `json:"address"`
	Allergies  []string `json:"allergies"`
	AuthID     string   `json:"auth_id"`
}

// CreatePatient handles POST /api/patients. Staff may register any patient;
// a regular user registers themselves and the record is linked to their
// auth identity.
func (h *PatientHandler) CreatePatient(c *fiber.Ctx) error {
	var req createPatientRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}
	if req.Name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("MISSING_FIELDS", "Patient name is required"))
	}

	actor := actorFromCtx(c)
	authID := req.AuthID
	if !actor.IsAdmin() {
		// Self registration always binds to the caller.
		authID = actor.AuthID
	}

	patientID, err := h.nextPatientID(c)
	if err != nil {
		h.logger.Error("failed to generate patient ID", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to create patient"))
	}

	patient := &models.Patient{
		PatientID:  patientID,
		Name:       req.Name,
		Email:      req.Email,
		Mobile:     req.Mobile,
		Gender:     req.Gender,
		Age:        req.Age,
		BloodGroup: req.BloodGroup,
		Address:    req.Address,
		Allergies:  req.Allergies,
		AuthID:     authID,
		CreatedAt:  time.Now(),
	}

	if err := h.store.AddPatient(c.Context(), patient); err != nil {
		h.logger.Error("failed to create patient", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to create patient"))
	}

	h.logger.Info("patient created",
		zap.String("patient_id", patient.PatientID),
		zap.String("name", patient.Name))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Patient created successfully",
		"patient": patient,
	})
}

// GetPatient handles GET /api/patients/:id
func (h *PatientHandler) GetPatient(c *fiber.Ctx) error {
	patient, err := h.store.GetPatient(c.Context(), c.Params("id"))
	if err != nil {
		return respondSchedulingError(c, err)
	}

	actor := actorFromCtx(c)
	if !actor.IsAdmin() && patient.AuthID != actor.AuthID {
		return c.Status(fiber.StatusForbidden).JSON(
			NewErrorResponse("NOT_AUTHORIZED", "You may only view your own patient record"))
	}

	return c.JSON(patient)
}

// ListPatients handles GET /api/patients?limit=&offset=
func (h *PatientHandler) ListPatients(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	limit := int64(c.QueryInt("limit", 50))
	offset := int64(c.QueryInt("offset", 0))
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	patients, err := h.store.ListPatients(c.Context(), limit, offset)
	if err != nil {
		h.logger.Error("failed to list patients", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to fetch patients"))
	}

	return c.JSON(fiber.Map{
		"patients": patients,
		"count":    len(patients),
	})
}

// SearchPatients handles GET /api/patients/search?term=
func (h *PatientHandler) SearchPatients(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	term := c.Query("term")
	if term == "" {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("MISSING_TERM", "Search term is required"))
	}

	patients, err := h.store.SearchPatients(c.Context(), term, 50)
	if err != nil {
		h.logger.Error("failed to search patients",
			zap.String("term", term),
			zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(
			NewErrorResponse("INTERNAL_ERROR", "Failed to search patients"))
	}

	return c.JSON(fiber.Map{
		"patients": patients,
		"count":    len(patients),
	})
}

type updatePatientRequest struct {
	Name       string   `json:"name"`
	Email      string   `json:"email"`
	Mobile     string   `json:"mobile"`
	Gender     string   `json:"gender"`
	Age        int      `json:"age"`
	BloodGroup string   `json:"blood_group"`
	Address    string   `json:"address"`
	Allergies  []string `json:"allergies"`
}

// UpdatePatient handles PUT /api/patients/:id
func (h *PatientHandler) UpdatePatient(c *fiber.Ctx) error {
	patientID := c.Params("id")

	patient, err := h.store.GetPatient(c.Context(), patientID)
	if err != nil {
		return respondSchedulingError(c, err)
	}

	actor := actorFromCtx(c)
	if !actor.IsAdmin() && patient.AuthID != actor.AuthID {
		return c.Status(fiber.StatusForbidden).JSON(
			NewErrorResponse("NOT_AUTHORIZED", "You may only update your own patient record"))
	}

	var req updatePatientRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("INVALID_BODY", "Invalid request body"))
	}

	fields := bson.M{}
	if req.Name != "" {
		fields["name"] = req.Name
	}
	if req.Email != "" {
		fields["email"] = req.Email
	}
	if req.Mobile != "" {
		fields["mobile"] = req.Mobile
	}
	if req.Gender != "" {
		fields["gender"] = req.Gender
	}
	if req.Age > 0 {
		fields["age"] = req.Age
	}
	if req.BloodGroup != "" {
		fields["blood_group"] = req.BloodGroup
	}
	if req.Address != "" {
		fields["address"] = req.Address
	}
	if req.Allergies != nil {
		fields["allergies"] = req.Allergies
	}
	if len(fields) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(
			NewErrorResponse("EMPTY_UPDATE", "No fields to update"))
	}

	if err := h.store.UpdatePatient(c.Context(), patientID, fields); err != nil {
		return respondSchedulingError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Patient updated successfully"})
}

// DeletePatient handles DELETE /api/patients/:id. The patient's
// appointment records go with them.
func (h *PatientHandler) DeletePatient(c *fiber.Ctx) error {
	if !requireAdmin(c) {
		return nil
	}

	patientID := c.Params("id")
	if err := h.store.DeletePatient(c.Context(), patientID); err != nil {
		return respondSchedulingError(c, err)
	}

	deleted, err := h.store.DeleteAppointmentsByPatient(c.Context(), patientID)
	if err != nil {
		h.logger.Error("failed to delete patient appointments",
			zap.String("patient_id", patientID),
			zap.Error(err))
	}

	h.logger.Info("patient deleted",
		zap.String("patient_id", patientID),
		zap.Int64("appointments_removed", deleted))

	return c.JSON(fiber.Map{"message": "Patient deleted successfully"})
}
