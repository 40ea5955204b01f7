// Package store holds the process-wide view of users, complaints, the student
// registry, teacher codes and teacher assignments. Reads are served from memory;
// every write is applied in memory first and then pushed to the Gateway.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

// Gateway is the durable persistence contract.
type Gateway interface {
	PutUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsers(ctx context.Context) (map[string]models.User, error)
	PutComplaint(ctx context.Context, complaint *models.Complaint) error
	PatchComplaint(ctx context.Context, id int64, patch models.ComplaintPatch) error
	// ListComplaints returns complaints ordered by creation time, newest first.
	ListComplaints(ctx context.Context) ([]*models.Complaint, error)
	PutStudentRegistry(ctx context.Context, registry map[string]models.StudentRecord) error
	GetStudentRegistry(ctx context.Context) (map[string]models.StudentRecord, error)
	PutTeacherCodes(ctx context.Context, codes []string) error
	GetTeacherCodes(ctx context.Context) ([]string, error)
	PutTeacherAssignment(ctx context.Context, assignment models.TeacherAssignment) error
	ListTeacherAssignments(ctx context.Context) (map[string]models.TeacherAssignment, error)
}

// FailureRecorder counts gateway failures per operation.
type FailureRecorder interface {
	RecordStorageFailure(operation string)
}

// Store is the in-memory source of truth shared by all services.
type Store struct {
	mu sync.RWMutex
	// writeMu is held from snapshot to gateway return for full-set writes
	// (teacher codes, student registry). Acquire it before mu.
	writeMu sync.Mutex

	gateway  Gateway
	logger   *zap.Logger
	failures FailureRecorder
	now      func() time.Time

	users       map[string]models.User
	complaints  map[int64]*models.Complaint
	nextID      int64
	registry    map[string]models.StudentRecord
	codes       map[string]struct{}
	assignments map[string]models.TeacherAssignment

	// loadErr is set while the last Hydrate failed; writes are refused until it succeeds.
	loadErr error
}

// Option customises a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithFailureRecorder reports gateway failures to r.
func WithFailureRecorder(r FailureRecorder) Option {
	return func(s *Store) { s.failures = r }
}

// New constructs an empty store. A nil gateway keeps everything in memory.
func New(gateway Gateway, logger *zap.Logger, opts ...Option) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		gateway:     gateway,
		logger:      logger.Named("store"),
		now:         time.Now,
		users:       make(map[string]models.User),
		complaints:  make(map[int64]*models.Complaint),
		nextID:      1,
		registry:    make(map[string]models.StudentRecord),
		codes:       make(map[string]struct{}),
		assignments: make(map[string]models.TeacherAssignment),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store clock reading.
func (s *Store) Now() time.Time {
	return s.now().UTC()
}

// Hydrate replaces the in-memory tables with the gateway contents.
// On failure the store keeps its current tables and refuses writes until a
// later Hydrate succeeds.
func (s *Store) Hydrate(ctx context.Context) error {
	if s.gateway == nil {
		return nil
	}
	users, complaints, registry, codes, assignments, err := s.load(ctx)
	if err != nil {
		s.mu.Lock()
		s.loadErr = err
		s.mu.Unlock()
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadErr = nil

	s.users = make(map[string]models.User, len(users))
	for id, u := range users {
		s.users[id] = u
	}
	s.complaints = make(map[int64]*models.Complaint, len(complaints))
	s.nextID = 1
	for _, c := range complaints {
		s.complaints[c.ID] = c.Clone()
		if c.ID >= s.nextID {
			s.nextID = c.ID + 1
		}
	}
	s.registry = make(map[string]models.StudentRecord, len(registry))
	for name, rec := range registry {
		s.registry[name] = rec
	}
	s.codes = make(map[string]struct{}, len(codes))
	for _, code := range codes {
		s.codes[code] = struct{}{}
	}
	s.assignments = make(map[string]models.TeacherAssignment, len(assignments))
	for id, a := range assignments {
		s.assignments[id] = a.Clone()
	}

	s.logger.Info("store hydrated",
		zap.Int("users", len(s.users)),
		zap.Int("complaints", len(s.complaints)),
		zap.Int("students", len(s.registry)),
		zap.Int64("next_complaint_id", s.nextID),
	)
	return nil
}

func (s *Store) load(ctx context.Context) (
	users map[string]models.User,
	complaints []*models.Complaint,
	registry map[string]models.StudentRecord,
	codes []string,
	assignments map[string]models.TeacherAssignment,
	err error,
) {
	if users, err = s.gateway.ListUsers(ctx); err != nil {
		err = s.loadError("users", err)
		return
	}
	if complaints, err = s.gateway.ListComplaints(ctx); err != nil {
		err = s.loadError("complaints", err)
		return
	}
	if registry, err = s.gateway.GetStudentRegistry(ctx); err != nil {
		err = s.loadError("student registry", err)
		return
	}
	if codes, err = s.gateway.GetTeacherCodes(ctx); err != nil {
		err = s.loadError("teacher codes", err)
		return
	}
	if assignments, err = s.gateway.ListTeacherAssignments(ctx); err != nil {
		err = s.loadError("teacher assignments", err)
	}
	return
}

// storageError logs and counts a gateway write failure and wraps it as STORAGE_UNAVAILABLE.
func (s *Store) storageError(op string, err error) error {
	return s.gatewayFailure(op, err, fmt.Sprintf("%s was applied in memory but could not be persisted", op))
}

func (s *Store) loadError(table string, err error) error {
	return s.gatewayFailure("load "+table, err, fmt.Sprintf("could not load %s from storage", table))
}

func (s *Store) gatewayFailure(op string, err error, message string) error {
	s.logger.Warn("persistence gateway failed", zap.String("operation", op), zap.Error(err))
	if s.failures != nil {
		s.failures.RecordStorageFailure(op)
	}
	return appErrors.Wrap(err, appErrors.ErrStorageUnavailable.Code, appErrors.ErrStorageUnavailable.Status, message)
}

// writableLocked reports why writes are refused. Callers hold mu.
func (s *Store) writableLocked() error {
	if s.loadErr == nil {
		return nil
	}
	return appErrors.Wrap(s.loadErr, appErrors.ErrNotReady.Code, appErrors.ErrNotReady.Status,
		"persisted state is not loaded, writes are disabled")
}

func (s *Store) persist(ctx context.Context, op string, fn func(context.Context, Gateway) error) error {
	if s.gateway == nil {
		return nil
	}
	if err := fn(ctx, s.gateway); err != nil {
		return s.storageError(op, err)
	}
	return nil
}

// User returns the user with id.
func (s *Store) User(id string) (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	return u, ok
}

// Users returns all users ordered by id.
func (s *Store) Users() []models.User {
	s.mu.RLock()
	out := make([]models.User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, u)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateParent inserts a parent account whose StudentName must be in the registry.
func (s *Store) CreateParent(ctx context.Context, user models.User) error {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.registry[user.StudentName]; !ok {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrNotRegistered, "student is not in the registry, please contact the school")
	}
	if _, exists := s.users[user.ID]; exists {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrAlreadyExists, "an account for this student already exists")
	}
	s.users[user.ID] = user
	s.mu.Unlock()

	return s.persist(ctx, "put user", func(ctx context.Context, g Gateway) error {
		return g.PutUser(ctx, user)
	})
}

// CreateTeacher consumes code, inserts the teacher and an empty assignment in one step.
func (s *Store) CreateTeacher(ctx context.Context, user models.User, code string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, ok := s.codes[code]; !ok {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrInvalidCode, "teacher signup code is not valid")
	}
	if _, exists := s.users[user.ID]; exists {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrAlreadyExists, "user id already exists")
	}
	s.users[user.ID] = user
	assignment := models.TeacherAssignment{TeacherID: user.ID, Categories: []models.Category{}, UpdatedAt: s.Now()}
	s.assignments[user.ID] = assignment
	delete(s.codes, code)
	codes := s.codeListLocked()
	s.mu.Unlock()

	return s.persist(ctx, "create teacher", func(ctx context.Context, g Gateway) error {
		if err := g.PutUser(ctx, user); err != nil {
			return err
		}
		if err := g.PutTeacherAssignment(ctx, assignment); err != nil {
			return err
		}
		return g.PutTeacherCodes(ctx, codes)
	})
}

// PutUser inserts a user if absent. Used for seeding.
func (s *Store) PutUser(ctx context.Context, user models.User) error {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, exists := s.users[user.ID]; exists {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrAlreadyExists, "user id already exists")
	}
	s.users[user.ID] = user
	s.mu.Unlock()

	return s.persist(ctx, "put user", func(ctx context.Context, g Gateway) error {
		return g.PutUser(ctx, user)
	})
}

// AddTeacherCode activates code.
func (s *Store) AddTeacherCode(ctx context.Context, code string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if _, exists := s.codes[code]; exists {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrAlreadyExists, "teacher code already active")
	}
	s.codes[code] = struct{}{}
	codes := s.codeListLocked()
	s.mu.Unlock()

	return s.persist(ctx, "put teacher codes", func(ctx context.Context, g Gateway) error {
		return g.PutTeacherCodes(ctx, codes)
	})
}

// TeacherCodes returns the active codes sorted.
func (s *Store) TeacherCodes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.codeListLocked()
}

func (s *Store) codeListLocked() []string {
	codes := make([]string, 0, len(s.codes))
	for code := range s.codes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Student returns the registry record for name.
func (s *Store) Student(name string) (models.StudentRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.registry[name]
	return rec, ok
}

// Students returns the registry ordered by grade, class, student number and name.
func (s *Store) Students() []models.StudentRecord {
	s.mu.RLock()
	out := make([]models.StudentRecord, 0, len(s.registry))
	for _, rec := range s.registry {
		out = append(out, rec)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		if a.ClassName != b.ClassName {
			return a.ClassName < b.ClassName
		}
		if a.StudentNumber != b.StudentNumber {
			return a.StudentNumber < b.StudentNumber
		}
		return a.Name < b.Name
	})
	return out
}

// AddStudents inserts records whose names are not yet registered.
// rowErrs holds one entry per record (nil when inserted); the registry is written once.
func (s *Store) AddStudents(ctx context.Context, records []models.StudentRecord) (rowErrs []error, err error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	rowErrs = make([]error, len(records))
	added := 0

	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return rowErrs, err
	}
	for i, rec := range records {
		if _, exists := s.registry[rec.Name]; exists {
			rowErrs[i] = appErrors.Clone(appErrors.ErrAlreadyExists, fmt.Sprintf("student %s is already registered", rec.Name))
			continue
		}
		s.registry[rec.Name] = rec
		added++
	}
	var snapshot map[string]models.StudentRecord
	if added > 0 {
		snapshot = make(map[string]models.StudentRecord, len(s.registry))
		for k, v := range s.registry {
			snapshot[k] = v
		}
	}
	s.mu.Unlock()

	if snapshot == nil {
		return rowErrs, nil
	}
	return rowErrs, s.persist(ctx, "put student registry", func(ctx context.Context, g Gateway) error {
		return g.PutStudentRegistry(ctx, snapshot)
	})
}

// Assignment returns the stored assignment for a teacher.
func (s *Store) Assignment(teacherID string) (models.TeacherAssignment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.assignments[teacherID]
	if !ok {
		return models.TeacherAssignment{}, false
	}
	return a.Clone(), true
}

// SetAssignment stores the assignment for an existing teacher.
func (s *Store) SetAssignment(ctx context.Context, assignment models.TeacherAssignment) error {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	user, ok := s.users[assignment.TeacherID]
	if !ok || user.Role != models.RoleTeacher {
		s.mu.Unlock()
		return appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
	}
	assignment = assignment.Clone()
	assignment.UpdatedAt = s.Now()
	s.assignments[assignment.TeacherID] = assignment
	s.mu.Unlock()

	return s.persist(ctx, "put teacher assignment", func(ctx context.Context, g Gateway) error {
		return g.PutTeacherAssignment(ctx, assignment)
	})
}

// Complaint returns a copy of the complaint with id.
func (s *Store) Complaint(id int64) (*models.Complaint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.complaints[id]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// Complaints returns copies of every complaint ordered by id.
func (s *Store) Complaints() []*models.Complaint {
	s.mu.RLock()
	out := make([]*models.Complaint, 0, len(s.complaints))
	for _, c := range s.complaints {
		out = append(out, c.Clone())
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CreateComplaint allocates the next id and stores what build returns.
// The id is consumed only when build succeeds.
func (s *Store) CreateComplaint(ctx context.Context, build func(id int64, now time.Time) (*models.Complaint, error)) (*models.Complaint, error) {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	complaint, err := build(s.nextID, s.Now())
	if err != nil {
		s.mu.Unlock()
		return nil, err
	}
	complaint.ID = s.nextID
	s.nextID++
	s.complaints[complaint.ID] = complaint
	snapshot := complaint.Clone()
	s.mu.Unlock()

	return snapshot.Clone(), s.persist(ctx, "put complaint", func(ctx context.Context, g Gateway) error {
		return g.PutComplaint(ctx, snapshot)
	})
}

// UpdateComplaint runs mutate against a copy of the complaint under the write lock
// and applies the returned patch. mutate may reject the update by returning an error.
func (s *Store) UpdateComplaint(ctx context.Context, id int64, mutate func(current *models.Complaint, now time.Time) (models.ComplaintPatch, error)) (before, after *models.Complaint, err error) {
	s.mu.Lock()
	if err := s.writableLocked(); err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	current, ok := s.complaints[id]
	if !ok {
		s.mu.Unlock()
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("complaint %d not found", id))
	}
	before = current.Clone()
	patch, err := mutate(current.Clone(), s.Now())
	if err != nil {
		s.mu.Unlock()
		return nil, nil, err
	}
	current.Apply(patch)
	after = current.Clone()
	s.mu.Unlock()

	return before, after, s.persist(ctx, "patch complaint", func(ctx context.Context, g Gateway) error {
		return g.PatchComplaint(ctx, id, patch)
	})
}
