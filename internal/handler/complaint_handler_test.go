package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/complaint-desk-api/internal/middleware"
	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/internal/service"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

type fakeComplaintSrv struct {
	lastActor models.Actor
	lastID    int64
	getErr    error
}

func (f *fakeComplaintSrv) Create(_ context.Context, actor models.Actor, _ models.CreateComplaintRequest) (*models.ComplaintResult, error) {
	f.lastActor = actor
	return &models.ComplaintResult{Complaint: &models.Complaint{ID: 1}}, nil
}

func (f *fakeComplaintSrv) UpdateStatus(_ context.Context, actor models.Actor, id int64, _ models.UpdateStatusRequest) (*models.ComplaintResult, error) {
	f.lastActor, f.lastID = actor, id
	return &models.ComplaintResult{Complaint: &models.Complaint{ID: id}}, nil
}

func (f *fakeComplaintSrv) Assign(context.Context, models.Actor, int64, models.AssignComplaintRequest) (*models.ComplaintResult, error) {
	return nil, appErrors.ErrPermissionDenied
}

func (f *fakeComplaintSrv) Get(_ context.Context, _ models.Actor, id int64) (*models.Complaint, error) {
	f.lastID = id
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &models.Complaint{ID: id}, nil
}

func (f *fakeComplaintSrv) List(context.Context, models.Actor) []*models.Complaint {
	return []*models.Complaint{{ID: 1}, {ID: 2}}
}

func (f *fakeComplaintSrv) Board(context.Context, models.Actor) *models.ComplaintBoard {
	return &models.ComplaintBoard{Counts: models.BoardCounts{Total: 2}}
}

type fakeExportSrv struct{ err error }

func (f fakeExportSrv) Export(context.Context, models.Actor, string) (*service.ExportFile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &service.ExportFile{Filename: "complaints.csv", ContentType: "text/csv", Data: []byte("id\n")}, nil
}

func newComplaintTestContext(method, target string, claims *models.JWTClaims) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(method, target, nil)
	if claims != nil {
		c.Set(middleware.ContextUserKey, claims)
	}
	return c, rec
}

func TestComplaintHandlerRequiresClaims(t *testing.T) {
	h := NewComplaintHandler(&fakeComplaintSrv{}, fakeExportSrv{})
	c, rec := newComplaintTestContext(http.MethodGet, "/complaints", nil)
	h.List(c)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestComplaintHandlerListAndBoard(t *testing.T) {
	h := NewComplaintHandler(&fakeComplaintSrv{}, fakeExportSrv{})
	claims := &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}

	c, rec := newComplaintTestContext(http.MethodGet, "/complaints", claims)
	h.List(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total":2`)

	c, rec = newComplaintTestContext(http.MethodGet, "/complaints?view=board", claims)
	h.List(c)
	assert.Contains(t, rec.Body.String(), `"active_urgent"`)
}

func TestComplaintHandlerGetParsesID(t *testing.T) {
	srv := &fakeComplaintSrv{}
	h := NewComplaintHandler(srv, fakeExportSrv{})
	claims := &models.JWTClaims{UserID: "김철수", Role: models.RoleParent}

	c, rec := newComplaintTestContext(http.MethodGet, "/complaints/abc", claims)
	c.Params = gin.Params{{Key: "id", Value: "abc"}}
	h.Get(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newComplaintTestContext(http.MethodGet, "/complaints/12", claims)
	c.Params = gin.Params{{Key: "id", Value: "12"}}
	h.Get(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, int64(12), srv.lastID)

	srv.getErr = appErrors.Clone(appErrors.ErrNotFound, "complaint 12 not found")
	c, rec = newComplaintTestContext(http.MethodGet, "/complaints/12", claims)
	c.Params = gin.Params{{Key: "id", Value: "12"}}
	h.Get(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComplaintHandlerExport(t *testing.T) {
	claims := &models.JWTClaims{UserID: "admin", Role: models.RoleAdmin}

	c, rec := newComplaintTestContext(http.MethodGet, "/complaints/export", claims)
	NewComplaintHandler(&fakeComplaintSrv{}, fakeExportSrv{}).Export(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `attachment; filename="complaints.csv"`, rec.Header().Get("Content-Disposition"))

	c, rec = newComplaintTestContext(http.MethodGet, "/complaints/export?format=xls", claims)
	NewComplaintHandler(&fakeComplaintSrv{}, fakeExportSrv{err: appErrors.ErrValidation}).Export(c)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	c, rec = newComplaintTestContext(http.MethodGet, "/complaints/export", claims)
	NewComplaintHandler(&fakeComplaintSrv{}, fakeExportSrv{err: errors.New("boom")}).Export(c)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
