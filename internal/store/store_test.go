package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

// fakeGateway keeps written records in maps and can be told to fail.
type fakeGateway struct {
	mu          sync.Mutex
	fail        bool
	users       map[string]models.User
	complaints  map[int64]*models.Complaint
	registry    map[string]models.StudentRecord
	codes       []string
	assignments map[string]models.TeacherAssignment
	patches     int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		users:       map[string]models.User{},
		complaints:  map[int64]*models.Complaint{},
		registry:    map[string]models.StudentRecord{},
		assignments: map[string]models.TeacherAssignment{},
	}
}

var errDown = errors.New("connection refused")

func (g *fakeGateway) err() error {
	if g.fail {
		return errDown
	}
	return nil
}

func (g *fakeGateway) PutUser(_ context.Context, u models.User) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.err(); err != nil {
		return err
	}
	g.users[u.ID] = u
	return nil
}

func (g *fakeGateway) GetUser(_ context.Context, id string) (*models.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	u, ok := g.users[id]
	if !ok {
		return nil, nil
	}
	return &u, g.err()
}

func (g *fakeGateway) ListUsers(context.Context) (map[string]models.User, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := map[string]models.User{}
	for k, v := range g.users {
		out[k] = v
	}
	return out, g.err()
}

func (g *fakeGateway) PutComplaint(_ context.Context, c *models.Complaint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.err(); err != nil {
		return err
	}
	g.complaints[c.ID] = c.Clone()
	return nil
}

func (g *fakeGateway) PatchComplaint(_ context.Context, id int64, p models.ComplaintPatch) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.err(); err != nil {
		return err
	}
	g.patches++
	g.complaints[id].Apply(p)
	return nil
}

func (g *fakeGateway) ListComplaints(context.Context) ([]*models.Complaint, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*models.Complaint
	for _, c := range g.complaints {
		out = append(out, c.Clone())
	}
	return out, g.err()
}

func (g *fakeGateway) PutStudentRegistry(_ context.Context, r map[string]models.StudentRecord) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.err(); err != nil {
		return err
	}
	g.registry = r
	return nil
}

func (g *fakeGateway) GetStudentRegistry(context.Context) (map[string]models.StudentRecord, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.registry, g.err()
}

func (g *fakeGateway) PutTeacherCodes(_ context.Context, codes []string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.err(); err != nil {
		return err
	}
	g.codes = codes
	return nil
}

func (g *fakeGateway) GetTeacherCodes(context.Context) ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.codes, g.err()
}

func (g *fakeGateway) PutTeacherAssignment(_ context.Context, a models.TeacherAssignment) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.err(); err != nil {
		return err
	}
	g.assignments[a.TeacherID] = a
	return nil
}

func (g *fakeGateway) ListTeacherAssignments(context.Context) (map[string]models.TeacherAssignment, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.assignments, g.err()
}

type failureCounter struct{ ops []string }

func (f *failureCounter) RecordStorageFailure(op string) { f.ops = append(f.ops, op) }

func buildComplaint(creator string) func(int64, time.Time) (*models.Complaint, error) {
	return func(id int64, now time.Time) (*models.Complaint, error) {
		return models.NewComplaint(id, "title", "content", models.CategoryMeal, models.UrgencyNormal, creator, now)
	}
}

func TestCreateComplaintAllocatesIncreasingIDs(t *testing.T) {
	s := New(newFakeGateway(), nil)
	ctx := context.Background()

	var last int64
	for i := 0; i < 5; i++ {
		c, err := s.CreateComplaint(ctx, buildComplaint("Kim"))
		require.NoError(t, err)
		assert.Greater(t, c.ID, last)
		last = c.ID
	}

	_, err := s.CreateComplaint(ctx, func(int64, time.Time) (*models.Complaint, error) {
		return nil, errors.New("rejected")
	})
	require.Error(t, err)

	c, err := s.CreateComplaint(ctx, buildComplaint("Kim"))
	require.NoError(t, err)
	assert.Equal(t, last+1, c.ID)
}

func TestCreateComplaintConcurrentIDsAreUnique(t *testing.T) {
	s := New(nil, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	ids := make(chan int64, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c, err := s.CreateComplaint(ctx, buildComplaint("Kim"))
			if err == nil {
				ids <- c.ID
			}
		}()
	}
	wg.Wait()
	close(ids)

	seen := map[int64]bool{}
	for id := range ids {
		assert.False(t, seen[id], "id %d reused", id)
		seen[id] = true
	}
	assert.Len(t, seen, 50)
}

func TestHydrateRestoresStateAndContinuesIDs(t *testing.T) {
	gw := newFakeGateway()
	ctx := context.Background()
	first := New(gw, nil)
	for i := 0; i < 3; i++ {
		_, err := first.CreateComplaint(ctx, buildComplaint("Kim"))
		require.NoError(t, err)
	}
	status := models.StatusResolved
	_, _, err := first.UpdateComplaint(ctx, 2, func(c *models.Complaint, now time.Time) (models.ComplaintPatch, error) {
		return models.ComplaintPatch{Status: &status, AppendHistory: []models.HistoryEntry{{Status: status, Timestamp: now, Note: "fixed"}}}, nil
	})
	require.NoError(t, err)

	second := New(gw, nil)
	require.NoError(t, second.Hydrate(ctx))

	c, ok := second.Complaint(2)
	require.True(t, ok)
	want, _ := first.Complaint(2)
	assert.Equal(t, want.History, c.History)

	next, err := second.CreateComplaint(ctx, buildComplaint("Kim"))
	require.NoError(t, err)
	assert.Equal(t, int64(4), next.ID)
}

func TestGatewayFailureKeepsInMemoryState(t *testing.T) {
	gw := newFakeGateway()
	gw.fail = true
	counter := &failureCounter{}
	s := New(gw, nil, WithFailureRecorder(counter))

	c, err := s.CreateComplaint(context.Background(), buildComplaint("Kim"))
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStorageUnavailable))
	require.NotNil(t, c)

	stored, ok := s.Complaint(c.ID)
	require.True(t, ok)
	assert.Equal(t, models.StatusPending, stored.Status)
	assert.Equal(t, []string{"put complaint"}, counter.ops)

	err = s.Hydrate(context.Background())
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStorageUnavailable))
	_, ok = s.Complaint(c.ID)
	assert.True(t, ok)
}

func TestUpdateComplaintNotFoundAndRejected(t *testing.T) {
	s := New(nil, nil)
	_, _, err := s.UpdateComplaint(context.Background(), 42, func(*models.Complaint, time.Time) (models.ComplaintPatch, error) {
		return models.ComplaintPatch{}, nil
	})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	c, err := s.CreateComplaint(context.Background(), buildComplaint("Kim"))
	require.NoError(t, err)
	_, _, err = s.UpdateComplaint(context.Background(), c.ID, func(*models.Complaint, time.Time) (models.ComplaintPatch, error) {
		return models.ComplaintPatch{}, appErrors.ErrPermissionDenied
	})
	assert.True(t, errors.Is(err, appErrors.ErrPermissionDenied))
	stored, _ := s.Complaint(c.ID)
	assert.Equal(t, int64(1), stored.Version)
}

func TestCreateParentRequiresRegistryAndUniqueID(t *testing.T) {
	s := New(nil, nil)
	ctx := context.Background()
	_, err := s.AddStudents(ctx, SampleRegistry)
	require.NoError(t, err)

	err = s.CreateParent(ctx, models.User{ID: "Unknown", Role: models.RoleParent, StudentName: "Unknown"})
	assert.True(t, errors.Is(err, appErrors.ErrNotRegistered))

	parent := models.User{ID: "김철수", Role: models.RoleParent, StudentName: "김철수"}
	require.NoError(t, s.CreateParent(ctx, parent))
	err = s.CreateParent(ctx, parent)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyExists))
}

func TestCreateTeacherConsumesCode(t *testing.T) {
	gw := newFakeGateway()
	s := New(gw, nil)
	ctx := context.Background()
	require.NoError(t, s.AddTeacherCode(ctx, "AB12CD34"))

	require.NoError(t, s.CreateTeacher(ctx, models.User{ID: "t-lee", Role: models.RoleTeacher}, "AB12CD34"))
	a, ok := s.Assignment("t-lee")
	require.True(t, ok)
	assert.Empty(t, a.Categories)
	assert.False(t, a.Master)
	assert.Empty(t, s.TeacherCodes())
	assert.Empty(t, gw.codes)

	err := s.CreateTeacher(ctx, models.User{ID: "t-park", Role: models.RoleTeacher}, "AB12CD34")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCode))
}

func TestAddStudentsCollectsDuplicates(t *testing.T) {
	gw := newFakeGateway()
	s := New(gw, nil)
	rowErrs, err := s.AddStudents(context.Background(), []models.StudentRecord{
		{Name: "A", Grade: 1, ClassName: "1", StudentNumber: "01", Year: 2025},
		{Name: "A", Grade: 1, ClassName: "1", StudentNumber: "02", Year: 2025},
		{Name: "B", Grade: 2, ClassName: "1", StudentNumber: "03", Year: 2025},
	})
	require.NoError(t, err)
	assert.Nil(t, rowErrs[0])
	assert.True(t, errors.Is(rowErrs[1], appErrors.ErrAlreadyExists))
	assert.Nil(t, rowErrs[2])
	assert.Len(t, gw.registry, 2)
	assert.Equal(t, "01", s.Students()[0].StudentNumber)
}

func TestSetAssignmentRequiresTeacher(t *testing.T) {
	s := New(nil, nil)
	ctx := context.Background()
	err := s.SetAssignment(ctx, models.TeacherAssignment{TeacherID: "nobody"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	require.NoError(t, s.PutUser(ctx, models.User{ID: "t1", Role: models.RoleTeacher}))
	require.NoError(t, s.SetAssignment(ctx, models.TeacherAssignment{TeacherID: "t1", Categories: []models.Category{models.CategoryMeal}}))
	a, ok := s.Assignment("t1")
	require.True(t, ok)
	assert.Equal(t, []models.Category{models.CategoryMeal}, a.Categories)
}

func TestSeedIsIdempotent(t *testing.T) {
	s := New(newFakeGateway(), nil)
	ctx := context.Background()
	opts := SeedOptions{AdminName: "System Administrator", AdminPasswordHash: "hash", Students: SampleRegistry}
	require.NoError(t, s.Seed(ctx, opts))
	require.NoError(t, s.Seed(ctx, opts))

	admin, ok := s.User(models.AdminUserID)
	require.True(t, ok)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Len(t, s.Students(), len(SampleRegistry))
}

// heldGateway parks the next full-set write until release is closed.
type heldGateway struct {
	*fakeGateway
	mu      sync.Mutex
	hold    bool
	parked  chan struct{}
	release chan struct{}
}

func newHeldGateway() *heldGateway {
	return &heldGateway{fakeGateway: newFakeGateway(), parked: make(chan struct{}), release: make(chan struct{})}
}

func (g *heldGateway) holdNext() {
	g.mu.Lock()
	g.hold = true
	g.mu.Unlock()
}

func (g *heldGateway) wait() {
	g.mu.Lock()
	hold := g.hold
	g.hold = false
	g.mu.Unlock()
	if hold {
		close(g.parked)
		<-g.release
	}
}

func (g *heldGateway) PutTeacherCodes(ctx context.Context, codes []string) error {
	g.wait()
	return g.fakeGateway.PutTeacherCodes(ctx, codes)
}

func (g *heldGateway) PutStudentRegistry(ctx context.Context, r map[string]models.StudentRecord) error {
	g.wait()
	return g.fakeGateway.PutStudentRegistry(ctx, r)
}

func TestConsumedTeacherCodeStaysConsumedAcrossConcurrentWrites(t *testing.T) {
	gw := newHeldGateway()
	s := New(gw, nil)
	ctx := context.Background()
	require.NoError(t, s.AddTeacherCode(ctx, "YYYY"))

	gw.holdNext()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		assert.NoError(t, s.AddTeacherCode(ctx, "XXXX"))
	}()
	<-gw.parked
	go func() {
		defer wg.Done()
		assert.NoError(t, s.CreateTeacher(ctx, models.User{ID: "t-lee", Role: models.RoleTeacher}, "YYYY"))
	}()
	time.Sleep(20 * time.Millisecond)
	close(gw.release)
	wg.Wait()

	restarted := New(gw, nil)
	require.NoError(t, restarted.Hydrate(ctx))
	assert.Equal(t, []string{"XXXX"}, restarted.TeacherCodes())

	err := restarted.CreateTeacher(ctx, models.User{ID: "t-park", Role: models.RoleTeacher}, "YYYY")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCode))
}

func TestConcurrentRegistryWritesKeepEveryStudent(t *testing.T) {
	gw := newHeldGateway()
	s := New(gw, nil)
	ctx := context.Background()

	gw.holdNext()
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, err := s.AddStudents(ctx, []models.StudentRecord{{Name: "A", Grade: 1, ClassName: "1", StudentNumber: "01", Year: 2025}})
		assert.NoError(t, err)
	}()
	<-gw.parked
	go func() {
		defer wg.Done()
		_, err := s.AddStudents(ctx, []models.StudentRecord{{Name: "B", Grade: 1, ClassName: "1", StudentNumber: "02", Year: 2025}})
		assert.NoError(t, err)
	}()
	time.Sleep(20 * time.Millisecond)
	close(gw.release)
	wg.Wait()

	restarted := New(gw, nil)
	require.NoError(t, restarted.Hydrate(ctx))
	assert.Len(t, restarted.Students(), 2)
}

// flakyLoadGateway fails ListComplaints a fixed number of times.
type flakyLoadGateway struct {
	*fakeGateway
	failures int
}

func (g *flakyLoadGateway) ListComplaints(ctx context.Context) ([]*models.Complaint, error) {
	if g.failures > 0 {
		g.failures--
		return nil, errDown
	}
	return g.fakeGateway.ListComplaints(ctx)
}

func TestFailedHydrateRefusesWritesUntilLoaded(t *testing.T) {
	gw := &flakyLoadGateway{fakeGateway: newFakeGateway(), failures: 1}
	ctx := context.Background()
	_, err := New(gw.fakeGateway, nil).CreateComplaint(ctx, buildComplaint("김철수"))
	require.NoError(t, err)

	counter := &failureCounter{}
	s := New(gw, nil, WithFailureRecorder(counter))
	err = s.Hydrate(ctx)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrStorageUnavailable))
	assert.Equal(t, "could not load complaints from storage", appErrors.FromError(err).Message)
	assert.Equal(t, []string{"load complaints"}, counter.ops)

	_, err = s.CreateComplaint(ctx, buildComplaint("이영희"))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotReady))
	err = s.AddTeacherCode(ctx, "AB12CD34")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotReady))
	assert.Equal(t, "김철수", gw.complaints[1].CreatedBy)

	require.NoError(t, s.Hydrate(ctx))
	c, err := s.CreateComplaint(ctx, buildComplaint("이영희"))
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.ID)
	assert.Equal(t, "김철수", gw.complaints[1].CreatedBy)
}
