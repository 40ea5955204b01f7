package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

const teacherCodeAttempts = 3

type accountStore interface {
	User(id string) (models.User, bool)
	CreateParent(ctx context.Context, user models.User) error
	CreateTeacher(ctx context.Context, user models.User, code string) error
	AddTeacherCode(ctx context.Context, code string) error
	TeacherCodes() []string
	Now() time.Time
}

type masterChecker interface {
	IsMasterTeacher(userID string) bool
}

// AuthConfig defines configuration for authentication flows.
type AuthConfig struct {
	AccessTokenSecret string
	AccessTokenExpiry time.Duration
	Issuer            string
	BcryptCost        int
}

// AccountService handles signup, login and teacher signup codes.
type AccountService struct {
	store     accountStore
	masters   masterChecker
	cache     cacheInvalidator
	validator *validator.Validate
	logger    *zap.Logger
	config    AuthConfig
	newCode   func() string
}

// NewAccountService constructs an AccountService instance.
func NewAccountService(store accountStore, masters masterChecker, cache cacheInvalidator, validate *validator.Validate, logger *zap.Logger, config AuthConfig) *AccountService {
	if config.AccessTokenExpiry <= 0 {
		config.AccessTokenExpiry = 12 * time.Hour
	}
	if config.BcryptCost == 0 {
		config.BcryptCost = bcrypt.DefaultCost
	}
	return &AccountService{
		store:     store,
		masters:   masters,
		cache:     cache,
		validator: defaultValidator(validate),
		logger:    defaultLogger(logger),
		config:    config,
		newCode:   generateTeacherCode,
	}
}

// generateTeacherCode returns the first eight characters of a random UUID, upper-cased.
func generateTeacherCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}

// HashPassword hashes a secret with the configured cost.
func (s *AccountService) HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.config.BcryptCost)
	if err != nil {
		return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	return string(hash), nil
}

// SignupParent creates a parent account whose login id is the student's registered name.
// The name must match a registry entry exactly.
func (s *AccountService) SignupParent(ctx context.Context, req models.ParentSignupRequest) (*models.SignupResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid parent signup payload")
	}
	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		ID:           req.StudentName,
		PasswordHash: hash,
		Role:         models.RoleParent,
		Name:         req.StudentName + " parent",
		StudentName:  req.StudentName,
		CreatedAt:    s.store.Now(),
	}
	outcome, err := settle(fmt.Sprintf("parent account for %s created (login id: %s)", req.StudentName, user.ID), s.store.CreateParent(ctx, user))
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.cache, s.logger)
	s.logger.Info("parent signed up", zap.String("user_id", user.ID), zap.Bool("durable", outcome.Durable))
	return &models.SignupResult{User: userInfo(user), Outcome: outcome}, nil
}

// SignupTeacher creates a teacher account, consuming a one-time code.
func (s *AccountService) SignupTeacher(ctx context.Context, req models.TeacherSignupRequest) (*models.SignupResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid teacher signup payload")
	}
	hash, err := s.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := models.User{
		ID:           req.TeacherID,
		PasswordHash: hash,
		Role:         models.RoleTeacher,
		Name:         req.Name,
		CreatedAt:    s.store.Now(),
	}
	outcome, err := settle("teacher account created", s.store.CreateTeacher(ctx, user, strings.TrimSpace(req.Code)))
	if err != nil {
		return nil, err
	}
	invalidateStats(ctx, s.cache, s.logger)
	s.logger.Info("teacher signed up", zap.String("user_id", user.ID), zap.Bool("durable", outcome.Durable))
	return &models.SignupResult{User: userInfo(user), Outcome: outcome}, nil
}

// GenerateTeacherCode activates a new single-use teacher signup code.
func (s *AccountService) GenerateTeacherCode(ctx context.Context) (*models.TeacherCodeResult, error) {
	var lastErr error
	for attempt := 0; attempt < teacherCodeAttempts; attempt++ {
		code := s.newCode()
		err := s.store.AddTeacherCode(ctx, code)
		if errors.Is(err, appErrors.ErrAlreadyExists) {
			lastErr = err
			continue
		}
		outcome, err := settle(fmt.Sprintf("teacher code %s generated", code), err)
		if err != nil {
			return nil, err
		}
		invalidateStats(ctx, s.cache, s.logger)
		s.logger.Info("teacher code generated", zap.Bool("durable", outcome.Durable))
		return &models.TeacherCodeResult{Code: code, Outcome: outcome}, nil
	}
	return nil, appErrors.Wrap(lastErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "could not generate a unique teacher code")
}

// ListTeacherCodes returns the active signup codes.
func (s *AccountService) ListTeacherCodes(_ context.Context) []string {
	return s.store.TeacherCodes()
}

// Login authenticates a user and returns a signed access token.
func (s *AccountService) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid login payload")
	}
	user, ok := s.store.User(req.ID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrAuthentication, "invalid user id or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrAuthentication, "invalid user id or password")
	}

	issuedAt := time.Now().UTC()
	token, err := s.generateAccessToken(user, issuedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create access token")
	}
	s.logger.Info("user logged in", zap.String("user_id", user.ID), zap.String("role", string(user.Role)))

	return &models.LoginResponse{
		AccessToken: token,
		ExpiresIn:   int64(s.config.AccessTokenExpiry.Seconds()),
		User:        userInfo(user),
		Profile:     models.ProfileForRole(user.Role),
		IssuedAt:    issuedAt,
	}, nil
}

// ValidateToken parses and validates an access token returning the claims.
func (s *AccountService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &models.JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.AccessTokenSecret), nil
	}, jwt.WithIssuer(s.config.Issuer))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, "invalid token")
	}
	claims, ok := token.Claims.(*models.JWTClaims)
	if !ok || !token.Valid || !claims.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token claims")
	}
	return claims, nil
}

// Me resolves the current identity with its capabilities.
func (s *AccountService) Me(_ context.Context, actor models.Actor) (*models.Identity, error) {
	user, ok := s.store.User(actor.ID)
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
	}
	master := user.Role == models.RoleAdmin || (user.Role == models.RoleTeacher && s.masters.IsMasterTeacher(user.ID))
	return &models.Identity{User: userInfo(user), Profile: models.ProfileForRole(user.Role), Master: master}, nil
}

func (s *AccountService) generateAccessToken(user models.User, issuedAt time.Time) (string, error) {
	claims := &models.JWTClaims{
		UserID: user.ID,
		Role:   user.Role,
		Name:   user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.config.Issuer,
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.config.AccessTokenExpiry)),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.AccessTokenSecret))
}

func userInfo(u models.User) models.UserInfo {
	return models.UserInfo{ID: u.ID, Name: u.Name, Role: u.Role, StudentName: u.StudentName}
}
