package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/complaint-desk-api/internal/models"
	"github.com/noah-isme/complaint-desk-api/migrations"
	appErrors "github.com/noah-isme/complaint-desk-api/pkg/errors"
)

// PostgresGateway persists the desk tables in Postgres.
type PostgresGateway struct {
	db *sqlx.DB
}

// NewPostgresGateway constructs a Postgres-backed gateway.
func NewPostgresGateway(db *sqlx.DB) *PostgresGateway {
	return &PostgresGateway{db: db}
}

// Migrate applies the embedded schema. Scripts are idempotent.
func (g *PostgresGateway) Migrate(ctx context.Context) error {
	scripts, err := migrations.Scripts()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	for _, script := range scripts {
		if _, err := g.db.ExecContext(ctx, script.SQL); err != nil {
			return fmt.Errorf("apply migration %s: %w", script.Name, err)
		}
	}
	return nil
}

const userColumns = `id, password_hash, role, name, student_name, created_at`

// PutUser inserts or replaces a user row.
func (g *PostgresGateway) PutUser(ctx context.Context, user models.User) error {
	const query = `INSERT INTO users (id, password_hash, role, name, student_name, created_at)
VALUES (:id, :password_hash, :role, :name, :student_name, :created_at)
ON CONFLICT (id) DO UPDATE SET password_hash = EXCLUDED.password_hash, role = EXCLUDED.role, name = EXCLUDED.name, student_name = EXCLUDED.student_name`
	if _, err := g.db.NamedExecContext(ctx, query, &user); err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

// GetUser returns a single user.
func (g *PostgresGateway) GetUser(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	var user models.User
	if err := g.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// ListUsers returns every user keyed by id.
func (g *PostgresGateway) ListUsers(ctx context.Context) (map[string]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var users []models.User
	if err := g.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make(map[string]models.User, len(users))
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

type complaintRow struct {
	models.Complaint
	HistoryJSON []byte `db:"history"`
}

const complaintColumns = `id, title, content, category, urgency, status, created_by, created_at, assigned_to, history, version`

// PutComplaint inserts a new complaint row. An existing row with the same id is
// never touched; the conflict is reported as ALREADY_EXISTS.
func (g *PostgresGateway) PutComplaint(ctx context.Context, complaint *models.Complaint) error {
	history, err := json.Marshal(complaint.History)
	if err != nil {
		return fmt.Errorf("marshal complaint history: %w", err)
	}
	const query = `INSERT INTO complaints (` + complaintColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11)
ON CONFLICT (id) DO NOTHING`
	res, err := g.db.ExecContext(ctx, query,
		complaint.ID, complaint.Title, complaint.Content, complaint.Category, complaint.Urgency,
		complaint.Status, complaint.CreatedBy, complaint.CreatedAt, complaint.AssignedTo, string(history), complaint.Version,
	)
	if err != nil {
		return fmt.Errorf("put complaint: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("put complaint rows affected: %w", err)
	}
	if rows == 0 {
		return appErrors.Clone(appErrors.ErrAlreadyExists, fmt.Sprintf("complaint %d already exists", complaint.ID))
	}
	return nil
}

// PatchComplaint applies a partial update. History entries are appended in a single
// statement so concurrent writers never drop each other's entries.
func (g *PostgresGateway) PatchComplaint(ctx context.Context, id int64, patch models.ComplaintPatch) error {
	sets := make([]string, 0, 4)
	args := []interface{}{id}

	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(patch.AppendHistory) > 0 {
		entries, err := json.Marshal(patch.AppendHistory)
		if err != nil {
			return fmt.Errorf("marshal history entries: %w", err)
		}
		args = append(args, string(entries))
		sets = append(sets, fmt.Sprintf("history = history || $%d::jsonb", len(args)))
	}
	if patch.AssignedTo != nil {
		args = append(args, *patch.AssignedTo)
		sets = append(sets, fmt.Sprintf("assigned_to = $%d", len(args)))
	}
	sets = append(sets, "version = version + 1")

	query := fmt.Sprintf("UPDATE complaints SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := g.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("patch complaint: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("patch complaint rows affected: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("complaint %d not found", id))
	}
	return nil
}

// ListComplaints returns every complaint, newest first.
func (g *PostgresGateway) ListComplaints(ctx context.Context) ([]*models.Complaint, error) {
	query := `SELECT ` + complaintColumns + ` FROM complaints ORDER BY created_at DESC, id DESC`
	var rows []complaintRow
	if err := g.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	out := make([]*models.Complaint, 0, len(rows))
	for i := range rows {
		c := rows[i].Complaint
		if err := json.Unmarshal(rows[i].HistoryJSON, &c.History); err != nil {
			return nil, fmt.Errorf("decode history for complaint %d: %w", c.ID, err)
		}
		out = append(out, &c)
	}
	return out, nil
}

// PutStudentRegistry replaces the whole registry in one transaction.
func (g *PostgresGateway) PutStudentRegistry(ctx context.Context, registry map[string]models.StudentRecord) (err error) {
	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin registry tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM student_registry`); err != nil {
		return fmt.Errorf("clear student registry: %w", err)
	}
	const insert = `INSERT INTO student_registry (name, grade, class_name, student_number, year) VALUES (:name, :grade, :class_name, :student_number, :year)`
	for name, rec := range registry {
		rec.Name = name
		if _, err = tx.NamedExecContext(ctx, insert, &rec); err != nil {
			return fmt.Errorf("insert student %s: %w", name, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit student registry: %w", err)
	}
	return nil
}

// GetStudentRegistry returns the registry keyed by student name.
func (g *PostgresGateway) GetStudentRegistry(ctx context.Context) (map[string]models.StudentRecord, error) {
	const query = `SELECT name, grade, class_name, student_number, year FROM student_registry`
	var records []models.StudentRecord
	if err := g.db.SelectContext(ctx, &records, query); err != nil {
		return nil, fmt.Errorf("get student registry: %w", err)
	}
	out := make(map[string]models.StudentRecord, len(records))
	for _, rec := range records {
		out[rec.Name] = rec
	}
	return out, nil
}

// PutTeacherCodes replaces the active code set.
func (g *PostgresGateway) PutTeacherCodes(ctx context.Context, codes []string) (err error) {
	tx, err := g.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin teacher codes tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM teacher_codes WHERE NOT (code = ANY($1))`, pq.Array(codes)); err != nil {
		return fmt.Errorf("prune teacher codes: %w", err)
	}
	for _, code := range codes {
		if _, err = tx.ExecContext(ctx, `INSERT INTO teacher_codes (code, created_at) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`, code, time.Now().UTC()); err != nil {
			return fmt.Errorf("insert teacher code: %w", err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit teacher codes: %w", err)
	}
	return nil
}

// GetTeacherCodes returns the active codes.
func (g *PostgresGateway) GetTeacherCodes(ctx context.Context) ([]string, error) {
	var codes []string
	if err := g.db.SelectContext(ctx, &codes, `SELECT code FROM teacher_codes ORDER BY code`); err != nil {
		return nil, fmt.Errorf("get teacher codes: %w", err)
	}
	return codes, nil
}

// PutTeacherAssignment upserts a teacher's category assignment.
func (g *PostgresGateway) PutTeacherAssignment(ctx context.Context, assignment models.TeacherAssignment) error {
	const query = `INSERT INTO teacher_assignments (teacher_id, categories, is_master, updated_at) VALUES ($1, $2, $3, $4)
ON CONFLICT (teacher_id) DO UPDATE SET categories = EXCLUDED.categories, is_master = EXCLUDED.is_master, updated_at = EXCLUDED.updated_at`
	categories := make([]string, len(assignment.Categories))
	for i, c := range assignment.Categories {
		categories[i] = string(c)
	}
	if _, err := g.db.ExecContext(ctx, query, assignment.TeacherID, pq.Array(categories), assignment.Master, assignment.UpdatedAt); err != nil {
		return fmt.Errorf("put teacher assignment: %w", err)
	}
	return nil
}

type assignmentRow struct {
	TeacherID  string         `db:"teacher_id"`
	Categories pq.StringArray `db:"categories"`
	Master     bool           `db:"is_master"`
	UpdatedAt  time.Time      `db:"updated_at"`
}

// ListTeacherAssignments returns every assignment keyed by teacher id.
func (g *PostgresGateway) ListTeacherAssignments(ctx context.Context) (map[string]models.TeacherAssignment, error) {
	const query = `SELECT teacher_id, categories, is_master, updated_at FROM teacher_assignments`
	var rows []assignmentRow
	if err := g.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list teacher assignments: %w", err)
	}
	out := make(map[string]models.TeacherAssignment, len(rows))
	for _, row := range rows {
		a := models.TeacherAssignment{TeacherID: row.TeacherID, Master: row.Master, UpdatedAt: row.UpdatedAt, Categories: make([]models.Category, 0, len(row.Categories))}
		for _, c := range row.Categories {
			a.Categories = append(a.Categories, models.Category(c))
		}
		out[row.TeacherID] = a
	}
	return out, nil
}
