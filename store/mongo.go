package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.uber.org/zap"

	"github.com/clinware/backend/models"
	"github.com/clinware/backend/scheduling"
)

// Collection names.
const (
	ColPatients     = "patients"
	ColDoctors      = "doctors"
	ColAppointments = "appointments"
	ColLockedSlots  = "locked_slots"
	ColWaitingList  = "waiting_list"
	ColNews         = "news"
	ColFiles        = "files"
)

// Mongo is the document-store adapter. It implements scheduling.Store and
// carries the CRUD operations used by the handlers. Queries stay on single
// identifying fields with in-memory filtering on top, so no composite
// indexes need provisioning.
type Mongo struct {
	client *mongo.Client
	dbName string
	logger *zap.Logger
}

func NewMongo(client *mongo.Client, dbName string, logger *zap.Logger) *Mongo {
	return &Mongo{
		client: client,
		dbName: dbName,
		logger: logger,
	}
}

func (s *Mongo) col(name string) *mongo.Collection {
	return s.client.Database(s.dbName).Collection(name)
}

// EnsureIndexes creates the lookup indexes plus a unique partial index on
// active appointments. The partial index is a backstop for the narrow
// window between the booking engine's availability re-check and its
// insert; a duplicate key there surfaces as a slot conflict.
func (s *Mongo) EnsureIndexes(ctx context.Context) error {
	_, err := s.col(ColAppointments).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "doctor_id", Value: 1}},
		},
		{
			Keys: bson.D{{Key: "patient_id", Value: 1}},
		},
		{
			Keys: bson.D{
				{Key: "doctor_id", Value: 1},
				{Key: "appointment_date", Value: 1},
				{Key: "appointment_time", Value: 1},
			},
			Options: options.Index().
				SetUnique(true).
				SetPartialFilterExpression(bson.M{
					"status": bson.M{"$in": bson.A{models.AppointmentScheduled, models.AppointmentCompleted}},
				}),
		},
	})
	if err != nil {
		return errors.Wrap(err, "create appointment indexes")
	}

	for _, spec := range []struct {
		col string
		key string
	}{
		{ColPatients, "patient_id"},
		{ColDoctors, "doctor_id"},
		{ColLockedSlots, "doctor_id"},
		{ColWaitingList, "doctor_id"},
	} {
		_, err := s.col(spec.col).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: spec.key, Value: 1}},
		})
		if err != nil {
			return errors.Wrapf(err, "create %s index", spec.col)
		}
	}
	return nil
}

// ---- scheduling.Store ----

func (s *Mongo) GetDoctor(ctx context.Context, doctorID string) (*models.Doctor, error) {
	var doctor models.Doctor
	err := s.col(ColDoctors).FindOne(ctx, bson.M{"doctor_id": doctorID}).Decode(&doctor)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, scheduling.ErrDoctorNotFound
		}
		return nil, errors.Wrap(err, "get doctor")
	}
	return &doctor, nil
}

func (s *Mongo) GetPatient(ctx context.Context, patientID string) (*models.Patient, error) {
	var patient models.Patient
	err := s.col(ColPatients).FindOne(ctx, bson.M{"patient_id": patientID}).Decode(&patient)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, scheduling.ErrPatientNotFound
		}
		return nil, errors.Wrap(err, "get patient")
	}
	return &patient, nil
}

// Appointments fetches by doctor_id only and narrows to the query's date,
// when set, in memory.
func (s *Mongo) Appointments(ctx context.Context, q scheduling.AppointmentQuery) ([]models.Appointment, error) {
	cursor, err := s.col(ColAppointments).Find(ctx, bson.M{"doctor_id": q.DoctorID})
	if err != nil {
		return nil, errors.Wrap(err, "query appointments")
	}
	var appointments []models.Appointment
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, errors.Wrap(err, "decode appointments")
	}
	if q.Date != nil {
		appointments = scheduling.FilterByDate(appointments, *q.Date)
	}
	return appointments, nil
}

func (s *Mongo) AddAppointment(ctx context.Context, appt *models.Appointment) error {
	_, err := s.col(ColAppointments).InsertOne(ctx, appt)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// Concurrent booking slipped past the re-check; the unique
			// partial index caught it.
			return scheduling.ErrSlotTaken
		}
		return errors.Wrap(err, "insert appointment")
	}
	return nil
}

func (s *Mongo) LockedSlots(ctx context.Context, doctorID, date string) ([]models.LockedSlot, error) {
	cursor, err := s.col(ColLockedSlots).Find(ctx, bson.M{"doctor_id": doctorID})
	if err != nil {
		return nil, errors.Wrap(err, "query locked slots")
	}
	var all []models.LockedSlot
	if err := cursor.All(ctx, &all); err != nil {
		return nil, errors.Wrap(err, "decode locked slots")
	}
	if date == "" {
		return all, nil
	}
	var matched []models.LockedSlot
	for _, lock := range all {
		if lock.Date == date {
			matched = append(matched, lock)
		}
	}
	return matched, nil
}

func (s *Mongo) AddLockedSlot(ctx context.Context, lock *models.LockedSlot) error {
	_, err := s.col(ColLockedSlots).InsertOne(ctx, lock)
	return errors.Wrap(err, "insert locked slot")
}

func (s *Mongo) DeleteLockedSlot(ctx context.Context, lockID string) error {
	res, err := s.col(ColLockedSlots).DeleteOne(ctx, bson.M{"lock_id": lockID})
	if err != nil {
		return errors.Wrap(err, "delete locked slot")
	}
	if res.DeletedCount == 0 {
		return errors.New("locked slot not found")
	}
	return nil
}

func (s *Mongo) GetWaitingEntry(ctx context.Context, entryID string) (*models.WaitingListEntry, error) {
	var entry models.WaitingListEntry
	err := s.col(ColWaitingList).FindOne(ctx, bson.M{"entry_id": entryID}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, scheduling.ErrEntryNotFound
		}
		return nil, errors.Wrap(err, "get waiting list entry")
	}
	return &entry, nil
}

func (s *Mongo) WaitingEntriesByDoctor(ctx context.Context, doctorID string) ([]models.WaitingListEntry, error) {
	opts := options.Find().SetSort(bson.D{{Key: "priority", Value: 1}})
	cursor, err := s.col(ColWaitingList).Find(ctx, bson.M{"doctor_id": doctorID}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "query waiting list")
	}
	var entries []models.WaitingListEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, errors.Wrap(err, "decode waiting list")
	}
	return entries, nil
}

func (s *Mongo) AddWaitingEntry(ctx context.Context, entry *models.WaitingListEntry) error {
	_, err := s.col(ColWaitingList).InsertOne(ctx, entry)
	return errors.Wrap(err, "insert waiting list entry")
}

func (s *Mongo) DeleteWaitingEntry(ctx context.Context, entryID string) error {
	res, err := s.col(ColWaitingList).DeleteOne(ctx, bson.M{"entry_id": entryID})
	if err != nil {
		return errors.Wrap(err, "delete waiting list entry")
	}
	if res.DeletedCount == 0 {
		return scheduling.ErrEntryNotFound
	}
	return nil
}

func (s *Mongo) UpdateWaitingEntry(ctx context.Context, entryID string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.col(ColWaitingList).UpdateOne(ctx,
		bson.M{"entry_id": entryID},
		bson.M{"$set": fields})
	if err != nil {
		return errors.Wrap(err, "update waiting list entry")
	}
	if res.MatchedCount == 0 {
		return scheduling.ErrEntryNotFound
	}
	return nil
}

// ---- handler-facing CRUD ----

func (s *Mongo) AddDoctor(ctx context.Context, doctor *models.Doctor) error {
	_, err := s.col(ColDoctors).InsertOne(ctx, doctor)
	return errors.Wrap(err, "insert doctor")
}

func (s *Mongo) ListDoctors(ctx context.Context) ([]models.Doctor, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := s.col(ColDoctors).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "query doctors")
	}
	var doctors []models.Doctor
	if err := cursor.All(ctx, &doctors); err != nil {
		return nil, errors.Wrap(err, "decode doctors")
	}
	return doctors, nil
}

func (s *Mongo) UpdateDoctor(ctx context.Context, doctorID string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.col(ColDoctors).UpdateOne(ctx,
		bson.M{"doctor_id": doctorID},
		bson.M{"$set": fields})
	if err != nil {
		return errors.Wrap(err, "update doctor")
	}
	if res.MatchedCount == 0 {
		return scheduling.ErrDoctorNotFound
	}
	return nil
}

func (s *Mongo) DeleteDoctor(ctx context.Context, doctorID string) error {
	res, err := s.col(ColDoctors).DeleteOne(ctx, bson.M{"doctor_id": doctorID})
	if err != nil {
		return errors.Wrap(err, "delete doctor")
	}
	if res.DeletedCount == 0 {
		return scheduling.ErrDoctorNotFound
	}
	return nil
}

func (s *Mongo) AddPatient(ctx context.Context, patient *models.Patient) error {
	_, err := s.col(ColPatients).InsertOne(ctx, patient)
	return errors.Wrap(err, "insert patient")
}

func (s *Mongo) ListPatients(ctx context.Context, limit, offset int64) ([]models.Patient, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)
	cursor, err := s.col(ColPatients).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, errors.Wrap(err, "query patients")
	}
	var patients []models.Patient
	if err := cursor.All(ctx, &patients); err != nil {
		return nil, errors.Wrap(err, "decode patients")
	}
	return patients, nil
}

// SearchPatients matches a case-insensitive prefix on name or mobile.
func (s *Mongo) SearchPatients(ctx context.Context, term string, limit int64) ([]models.Patient, error) {
	filter := bson.M{
		"$or": bson.A{
			bson.M{"name": bson.M{"$regex": "^" + term, "$options": "i"}},
			bson.M{"mobile": bson.M{"$regex": "^" + term}},
		},
	}
	opts := options.Find().SetLimit(limit)
	cursor, err := s.col(ColPatients).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "search patients")
	}
	var patients []models.Patient
	if err := cursor.All(ctx, &patients); err != nil {
		return nil, errors.Wrap(err, "decode patients")
	}
	return patients, nil
}

func (s *Mongo) PatientIDExists(ctx context.Context, patientID string) (bool, error) {
	count, err := s.col(ColPatients).CountDocuments(ctx, bson.M{"patient_id": patientID})
	if err != nil {
		return false, errors.Wrap(err, "count patients")
	}
	return count > 0, nil
}

func (s *Mongo) UpdatePatient(ctx context.Context, patientID string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.col(ColPatients).UpdateOne(ctx,
		bson.M{"patient_id": patientID},
		bson.M{"$set": fields})
	if err != nil {
		return errors.Wrap(err, "update patient")
	}
	if res.MatchedCount == 0 {
		return scheduling.ErrPatientNotFound
	}
	return nil
}

func (s *Mongo) DeletePatient(ctx context.Context, patientID string) error {
	res, err := s.col(ColPatients).DeleteOne(ctx, bson.M{"patient_id": patientID})
	if err != nil {
		return errors.Wrap(err, "delete patient")
	}
	if res.DeletedCount == 0 {
		return scheduling.ErrPatientNotFound
	}
	return nil
}

func (s *Mongo) GetAppointment(ctx context.Context, appointmentID string) (*models.Appointment, error) {
	var appt models.Appointment
	err := s.col(ColAppointments).FindOne(ctx, bson.M{"appointment_id": appointmentID}).Decode(&appt)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, scheduling.ErrAppointmentNotFound
		}
		return nil, errors.Wrap(err, "get appointment")
	}
	return &appt, nil
}

func (s *Mongo) AppointmentsByPatient(ctx context.Context, patientID string) ([]models.Appointment, error) {
	cursor, err := s.col(ColAppointments).Find(ctx, bson.M{"patient_id": patientID})
	if err != nil {
		return nil, errors.Wrap(err, "query appointments")
	}
	var appointments []models.Appointment
	if err := cursor.All(ctx, &appointments); err != nil {
		return nil, errors.Wrap(err, "decode appointments")
	}
	return appointments, nil
}

func (s *Mongo) UpdateAppointment(ctx context.Context, appointmentID string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.col(ColAppointments).UpdateOne(ctx,
		bson.M{"appointment_id": appointmentID},
		bson.M{"$set": fields})
	if err != nil {
		return errors.Wrap(err, "update appointment")
	}
	if res.MatchedCount == 0 {
		return scheduling.ErrAppointmentNotFound
	}
	return nil
}

func (s *Mongo) DeleteAppointment(ctx context.Context, appointmentID string) error {
	res, err := s.col(ColAppointments).DeleteOne(ctx, bson.M{"appointment_id": appointmentID})
	if err != nil {
		return errors.Wrap(err, "delete appointment")
	}
	if res.DeletedCount == 0 {
		return scheduling.ErrAppointmentNotFound
	}
	return nil
}

// DeleteAppointmentsByPatient clears a patient's appointment history.
func (s *Mongo) DeleteAppointmentsByPatient(ctx context.Context, patientID string) (int64, error) {
	res, err := s.col(ColAppointments).DeleteMany(ctx, bson.M{"patient_id": patientID})
	if err != nil {
		return 0, errors.Wrap(err, "delete appointments by patient")
	}
	return res.DeletedCount, nil
}

func (s *Mongo) AddNews(ctx context.Context, post *models.NewsPost) error {
	_, err := s.col(ColNews).InsertOne(ctx, post)
	return errors.Wrap(err, "insert news post")
}

func (s *Mongo) GetNews(ctx context.Context, newsID string) (*models.NewsPost, error) {
	var post models.NewsPost
	err := s.col(ColNews).FindOne(ctx, bson.M{"news_id": newsID}).Decode(&post)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.New("news post not found")
		}
		return nil, errors.Wrap(err, "get news post")
	}
	return &post, nil
}

func (s *Mongo) ListNews(ctx context.Context, publishedOnly bool) ([]models.NewsPost, error) {
	filter := bson.M{}
	if publishedOnly {
		filter["published"] = true
	}
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.col(ColNews).Find(ctx, filter, opts)
	if err != nil {
		return nil, errors.Wrap(err, "query news")
	}
	var posts []models.NewsPost
	if err := cursor.All(ctx, &posts); err != nil {
		return nil, errors.Wrap(err, "decode news")
	}
	return posts, nil
}

func (s *Mongo) UpdateNews(ctx context.Context, newsID string, fields bson.M) error {
	fields["updated_at"] = time.Now().UTC()
	res, err := s.col(ColNews).UpdateOne(ctx,
		bson.M{"news_id": newsID},
		bson.M{"$set": fields})
	if err != nil {
		return errors.Wrap(err, "update news post")
	}
	if res.MatchedCount == 0 {
		return errors.New("news post not found")
	}
	return nil
}

func (s *Mongo) DeleteNews(ctx context.Context, newsID string) error {
	res, err := s.col(ColNews).DeleteOne(ctx, bson.M{"news_id": newsID})
	if err != nil {
		return errors.Wrap(err, "delete news post")
	}
	if res.DeletedCount == 0 {
		return errors.New("news post not found")
	}
	return nil
}

func (s *Mongo) AddFile(ctx context.Context, file *models.FileObject) error {
	_, err := s.col(ColFiles).InsertOne(ctx, file)
	return errors.Wrap(err, "insert file metadata")
}

func (s *Mongo) GetFile(ctx context.Context, fileID string) (*models.FileObject, error) {
	var file models.FileObject
	err := s.col(ColFiles).FindOne(ctx, bson.M{"file_id": fileID}).Decode(&file)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, errors.New("file not found")
		}
		return nil, errors.Wrap(err, "get file metadata")
	}
	return &file, nil
}

func (s *Mongo) DeleteFile(ctx context.Context, fileID string) error {
	res, err := s.col(ColFiles).DeleteOne(ctx, bson.M{"file_id": fileID})
	if err != nil {
		return errors.Wrap(err, "delete file metadata")
	}
	if res.DeletedCount == 0 {
		return errors.New("file not found")
	}
	return nil
}
