package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

func newAccountService(f *fixture) *AccountService {
	return NewAccountService(f.store, f.authz, nil, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "complaint-desk-test",
		BcryptCost:        bcrypt.MinCost,
	})
}

func TestSignupParent(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)
	ctx := context.Background()

	res, err := svc.SignupParent(ctx, models.ParentSignupRequest{StudentName: "박민수", Password: "1234"})
	require.NoError(t, err)
	assert.True(t, res.Durable)
	assert.Equal(t, "박민수", res.User.ID)
	assert.Equal(t, "박민수 parent", res.User.Name)
	assert.Equal(t, models.RoleParent, res.User.Role)

	_, err = svc.SignupParent(ctx, models.ParentSignupRequest{StudentName: "박민수", Password: "5678"})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyExists)

	_, err = svc.SignupParent(ctx, models.ParentSignupRequest{StudentName: "홍길동", Password: "1234"})
	assert.ErrorIs(t, err, appErrors.ErrNotRegistered)
	_, ok := f.store.User("홍길동")
	assert.False(t, ok)

	_, err = svc.SignupParent(ctx, models.ParentSignupRequest{StudentName: "최지영", Password: "12"})
	assert.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestTeacherCodeIsSingleUse(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)
	ctx := context.Background()

	code, err := svc.GenerateTeacherCode(ctx)
	require.NoError(t, err)
	assert.Len(t, code.Code, 8)
	assert.Contains(t, svc.ListTeacherCodes(ctx), code.Code)

	res, err := svc.SignupTeacher(ctx, models.TeacherSignupRequest{TeacherID: "t-park", Password: "pass", Name: "Park", Code: " " + code.Code + " "})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, res.User.Role)
	assert.NotContains(t, svc.ListTeacherCodes(ctx), code.Code)

	assignment, ok := f.store.Assignment("t-park")
	require.True(t, ok)
	assert.Empty(t, assignment.Categories)
	assert.False(t, assignment.Master)

	_, err = svc.SignupTeacher(ctx, models.TeacherSignupRequest{TeacherID: "t-kang", Password: "pass", Name: "Kang", Code: code.Code})
	assert.ErrorIs(t, err, appErrors.ErrInvalidCode)
}

func TestSignupTeacherDuplicateKeepsCode(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)
	ctx := context.Background()

	code, err := svc.GenerateTeacherCode(ctx)
	require.NoError(t, err)
	_, err = svc.SignupTeacher(ctx, models.TeacherSignupRequest{TeacherID: "t-meal", Password: "pass", Name: "Dup", Code: code.Code})
	assert.ErrorIs(t, err, appErrors.ErrAlreadyExists)
	assert.Contains(t, svc.ListTeacherCodes(ctx), code.Code)
}

func TestGenerateTeacherCodeRetriesCollisions(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)
	ctx := context.Background()
	require.NoError(t, f.store.AddTeacherCode(ctx, "AAAAAAAA"))

	codes := []string{"AAAAAAAA", "BBBBBBBB"}
	svc.newCode = func() string {
		next := codes[0]
		codes = codes[1:]
		return next
	}
	res, err := svc.GenerateTeacherCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", res.Code)

	svc.newCode = func() string { return "AAAAAAAA" }
	_, err = svc.GenerateTeacherCode(ctx)
	assert.ErrorIs(t, err, appErrors.ErrInternal)
}

func TestLoginAndValidateToken(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)
	ctx := context.Background()
	_, err := svc.SignupParent(ctx, models.ParentSignupRequest{StudentName: "정우진", Password: "secret"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, models.LoginRequest{ID: "정우진", Password: "wrong"})
	assert.ErrorIs(t, err, appErrors.ErrAuthentication)
	_, err = svc.Login(ctx, models.LoginRequest{ID: "nobody", Password: "secret"})
	assert.ErrorIs(t, err, appErrors.ErrAuthentication)

	resp, err := svc.Login(ctx, models.LoginRequest{ID: "정우진", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, models.RoleParent, resp.Profile.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "정우진", claims.UserID)
	assert.Equal(t, models.RoleParent, claims.Role)
	assert.Equal(t, models.Actor{ID: "정우진", Role: models.RoleParent}, claims.Actor())

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)

	other := newAccountService(f)
	other.config.Issuer = "someone-else"
	_, err = other.ValidateToken(resp.AccessToken)
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestMeReportsMasterFlag(t *testing.T) {
	f := newFixture(t)
	svc := newAccountService(f)
	ctx := context.Background()

	me, err := svc.Me(ctx, masterActor)
	require.NoError(t, err)
	assert.True(t, me.Master)
	assert.Equal(t, models.RoleTeacher, me.Profile.Role)

	me, err = svc.Me(ctx, mealTeacher)
	require.NoError(t, err)
	assert.False(t, me.Master)

	_, err = svc.Me(ctx, models.Actor{ID: "gone", Role: models.RoleParent})
	assert.ErrorIs(t, err, appErrors.ErrUnauthorized)
}
