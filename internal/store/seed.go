package store

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

// SampleRegistry is the registry a fresh installation starts with.
var SampleRegistry = []models.StudentRecord{
	{Name: "김철수", Grade: 1, ClassName: "1", StudentNumber: "47", Year: 2025},
	{Name: "이영희", Grade: 2, ClassName: "2", StudentNumber: "23", Year: 2025},
	{Name: "박민수", Grade: 3, ClassName: "3", StudentNumber: "58", Year: 2025},
	{Name: "최지영", Grade: 1, ClassName: "4", StudentNumber: "14", Year: 2025},
	{Name: "정우진", Grade: 2, ClassName: "5", StudentNumber: "36", Year: 2025},
}

// SeedOptions describes the baseline data ensured at startup.
type SeedOptions struct {
	AdminName         string
	AdminPasswordHash string
	Students          []models.StudentRecord
}

// Seed creates the administrator account and the sample registry when they are missing.
// Persistence failures are logged and the first one is returned; seeding continues.
func (s *Store) Seed(ctx context.Context, opts SeedOptions) error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if _, ok := s.User(models.AdminUserID); !ok && opts.AdminPasswordHash != "" {
		err := s.PutUser(ctx, models.User{
			ID:           models.AdminUserID,
			PasswordHash: opts.AdminPasswordHash,
			Role:         models.RoleAdmin,
			Name:         opts.AdminName,
			CreatedAt:    s.Now(),
		})
		if err != nil && !errors.Is(err, appErrors.ErrAlreadyExists) {
			keep(err)
		} else if err == nil {
			s.logger.Info("seeded administrator account", zap.String("id", models.AdminUserID))
		}
	}

	if len(opts.Students) > 0 && len(s.Students()) == 0 {
		_, err := s.AddStudents(ctx, opts.Students)
		keep(err)
		s.logger.Info("seeded student registry", zap.Int("students", len(opts.Students)))
	}

	return firstErr
}
