package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/drupchen/dupr-server/internal/models"
)

// ErrAlreadyTracked is returned when a (user, definition) tracked
// practice already exists. The uniqueness constraint lives in the
// database, so two concurrent start-tracking submissions resolve to
// exactly one row and one conflict.
var ErrAlreadyTracked = errors.New("practice is already tracked")

// ErrDuplicateEmail is returned when a user insert hits the
// users.email uniqueness constraint. Like ErrAlreadyTracked, the
// constraint decides so concurrent signups cannot race past a
// check-then-insert.
var ErrDuplicateEmail = errors.New("email is already registered")

// Repository interface defines the methods that any repository implementation must satisfy
type Repository interface {
	// User operations
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserCategorySlugs(ctx context.Context, userID string) ([]string, error)
	SetUserCategories(ctx context.Context, userID string, categoryIDs []string) error

	// Category operations
	CreateCategory(ctx context.Context, category *models.Category) error
	ListCategories(ctx context.Context) ([]models.Category, error)
	GetCategoriesBySlugs(ctx context.Context, slugs []string) ([]models.Category, error)

	// Teaching operations
	CreateTeaching(ctx context.Context, teaching *models.Teaching, categoryIDs []string) error
	GetTeachingBySlug(ctx context.Context, slug string) (*models.Teaching, error)
	ListTeachings(ctx context.Context) ([]models.Teaching, error)

	// Practice definition operations
	CreateDefinition(ctx context.Context, def *models.PracticeDefinition) error
	GetDefinitionByID(ctx context.Context, id string) (*models.PracticeDefinition, error)
	DeleteDefinition(ctx context.Context, id string) error
	ListAvailableDefinitions(ctx context.Context, userID string) ([]models.PracticeDefinition, error)

	// Tracked practice operations
	CreateTrackedPractice(ctx context.Context, tracked *models.TrackedPractice) error
	GetTrackedPractice(ctx context.Context, id string) (*models.TrackedPractice, error)
	ListTrackedPractices(ctx context.Context, userID string) ([]models.TrackedPractice, error)
	SetTrackedPracticeActive(ctx context.Context, id string, active bool) error

	// Log entry operations
	CreateLogEntry(ctx context.Context, entry *models.LogEntry) error
	GetLogEntry(ctx context.Context, id string) (*models.LogEntry, error)
	UpdateLogEntry(ctx context.Context, entry *models.LogEntry) error
	DeleteLogEntry(ctx context.Context, id string) error
	ListEntriesForTracked(ctx context.Context, userID, trackedID string) ([]models.LogEntry, error)
	ListEntriesForUser(ctx context.Context, userID string, limit, offset int) ([]models.LogEntry, error)
}

// PostgresRepository implements the Repository interface using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
	}
}

// GetDB returns the underlying database connection
func (r *PostgresRepository) GetDB() *sqlx.DB {
	return r.db
}

// User repository methods
func (r *PostgresRepository) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, email, name, password, is_staff, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	// Generate a new UUID if not provided
	if user.ID == "" {
		user.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Email, user.Name, user.Password, user.IsStaff, user.CreatedAt, user.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicateEmail
	}

	return err
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT * FROM users WHERE email = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT * FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // User not found
		}
		return nil, err
	}

	return &user, nil
}

func (r *PostgresRepository) GetUserCategorySlugs(ctx context.Context, userID string) ([]string, error) {
	query := `
		SELECT c.slug FROM categories c
		JOIN user_categories uc ON c.id = uc.category_id
		WHERE uc.user_id = $1
	`

	var slugs []string
	err := r.db.SelectContext(ctx, &slugs, query, userID)
	if err != nil {
		return nil, err
	}

	return slugs, nil
}

func (r *PostgresRepository) SetUserCategories(ctx context.Context, userID string, categoryIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	// Replace the full assignment set
	_, err = tx.ExecContext(ctx, `DELETE FROM user_categories WHERE user_id = $1`, userID)
	if err != nil {
		return err
	}

	for _, categoryID := range categoryIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO user_categories (user_id, category_id) VALUES ($1, $2)`,
			userID, categoryID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Category repository methods
func (r *PostgresRepository) CreateCategory(ctx context.Context, category *models.Category) error {
	query := `INSERT INTO categories (id, slug, name) VALUES ($1, $2, $3)`

	if category.ID == "" {
		category.ID = uuid.New().String()
	}

	_, err := r.db.ExecContext(ctx, query, category.ID, category.Slug, category.Name)
	return err
}

func (r *PostgresRepository) ListCategories(ctx context.Context) ([]models.Category, error) {
	query := `SELECT * FROM categories ORDER BY name ASC`

	var categories []models.Category
	err := r.db.SelectContext(ctx, &categories, query)
	if err != nil {
		return nil, err
	}

	return categories, nil
}

func (r *PostgresRepository) GetCategoriesBySlugs(ctx context.Context, slugs []string) ([]models.Category, error) {
	if len(slugs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(`SELECT * FROM categories WHERE slug IN (?)`, slugs)
	if err != nil {
		return nil, err
	}

	var categories []models.Category
	err = r.db.SelectContext(ctx, &categories, r.db.Rebind(query), args...)
	if err != nil {
		return nil, err
	}

	return categories, nil
}

// Teaching repository methods
func (r *PostgresRepository) CreateTeaching(ctx context.Context, teaching *models.Teaching, categoryIDs []string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			tx.Rollback()
			return
		}
	}()

	query := `
		INSERT INTO teachings (id, slug, title, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	if teaching.ID == "" {
		teaching.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	teaching.CreatedAt = now
	teaching.UpdatedAt = now

	_, err = tx.ExecContext(ctx, query,
		teaching.ID, teaching.Slug, teaching.Title, teaching.Body,
		teaching.CreatedAt, teaching.UpdatedAt)
	if err != nil {
		return err
	}

	for _, categoryID := range categoryIDs {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO teaching_categories (teaching_id, category_id) VALUES ($1, $2)`,
			teaching.ID, categoryID)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *PostgresRepository) GetTeachingBySlug(ctx context.Context, slug string) (*models.Teaching, error) {
	query := `SELECT * FROM teachings WHERE slug = $1`

	var teaching models.Teaching
	err := r.db.GetContext(ctx, &teaching, query, slug)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Teaching not found
		}
		return nil, err
	}

	teaching.Categories, err = r.getTeachingCategorySlugs(ctx, teaching.ID)
	if err != nil {
		return nil, err
	}

	return &teaching, nil
}

func (r *PostgresRepository) ListTeachings(ctx context.Context) ([]models.Teaching, error) {
	query := `SELECT * FROM teachings ORDER BY created_at DESC`

	var teachings []models.Teaching
	err := r.db.SelectContext(ctx, &teachings, query)
	if err != nil {
		return nil, err
	}

	for i := range teachings {
		teachings[i].Categories, err = r.getTeachingCategorySlugs(ctx, teachings[i].ID)
		if err != nil {
			return nil, err
		}
	}

	return teachings, nil
}

func (r *PostgresRepository) getTeachingCategorySlugs(ctx context.Context, teachingID string) ([]string, error) {
	query := `
		SELECT c.slug FROM categories c
		JOIN teaching_categories tc ON c.id = tc.category_id
		WHERE tc.teaching_id = $1
	`

	var slugs []string
	err := r.db.SelectContext(ctx, &slugs, query, teachingID)
	if err != nil {
		return nil, err
	}

	return slugs, nil
}

// Practice definition repository methods
func (r *PostgresRepository) CreateDefinition(ctx context.Context, def *models.PracticeDefinition) error {
	query := `
		INSERT INTO practice_definitions (id, slug, name, kind, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	if def.ID == "" {
		def.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	def.CreatedAt = now
	def.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		def.ID, def.Slug, def.Name, def.Kind, def.IsActive, def.CreatedAt, def.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetDefinitionByID(ctx context.Context, id string) (*models.PracticeDefinition, error) {
	query := `SELECT * FROM practice_definitions WHERE id = $1`

	var def models.PracticeDefinition
	err := r.db.GetContext(ctx, &def, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Definition not found
		}
		return nil, err
	}

	return &def, nil
}

// DeleteDefinition removes a definition. Tracked practices referencing
// it, and their log entries, go with it via the cascade constraints.
func (r *PostgresRepository) DeleteDefinition(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM practice_definitions WHERE id = $1`, id)
	return err
}

// ListAvailableDefinitions returns active definitions the user is not
// already tracking.
func (r *PostgresRepository) ListAvailableDefinitions(ctx context.Context, userID string) ([]models.PracticeDefinition, error) {
	query := `
		SELECT d.* FROM practice_definitions d
		WHERE d.is_active = TRUE
		AND NOT EXISTS (
			SELECT 1 FROM tracked_practices tp
			WHERE tp.definition_id = d.id AND tp.user_id = $1
		)
		ORDER BY d.name ASC
	`

	var defs []models.PracticeDefinition
	err := r.db.SelectContext(ctx, &defs, query, userID)
	if err != nil {
		return nil, err
	}

	return defs, nil
}

// Tracked practice repository methods
func (r *PostgresRepository) CreateTrackedPractice(ctx context.Context, tracked *models.TrackedPractice) error {
	query := `
		INSERT INTO tracked_practices (id, user_id, definition_id, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if tracked.ID == "" {
		tracked.ID = uuid.New().String()
	}

	if tracked.CreatedAt.IsZero() {
		tracked.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, query,
		tracked.ID, tracked.UserID, tracked.DefinitionID, tracked.IsActive, tracked.CreatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrAlreadyTracked
	}

	return err
}

func (r *PostgresRepository) GetTrackedPractice(ctx context.Context, id string) (*models.TrackedPractice, error) {
	query := `SELECT * FROM tracked_practices WHERE id = $1`

	var tracked models.TrackedPractice
	err := r.db.GetContext(ctx, &tracked, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Tracked practice not found
		}
		return nil, err
	}

	return &tracked, nil
}

func (r *PostgresRepository) ListTrackedPractices(ctx context.Context, userID string) ([]models.TrackedPractice, error) {
	query := `SELECT * FROM tracked_practices WHERE user_id = $1 ORDER BY created_at ASC`

	var tracked []models.TrackedPractice
	err := r.db.SelectContext(ctx, &tracked, query, userID)
	if err != nil {
		return nil, err
	}

	return tracked, nil
}

func (r *PostgresRepository) SetTrackedPracticeActive(ctx context.Context, id string, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE tracked_practices SET is_active = $1 WHERE id = $2`, active, id)
	return err
}

// Log entry repository methods
func (r *PostgresRepository) CreateLogEntry(ctx context.Context, entry *models.LogEntry) error {
	query := `
		INSERT INTO log_entries
			(id, tracked_practice_id, user_id, malas, hours, minutes, mantras, entry_date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}

	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.TrackedPracticeID, entry.UserID,
		entry.Malas, entry.Hours, entry.Minutes, entry.Mantras,
		entry.EntryDate, entry.Notes, entry.CreatedAt, entry.UpdatedAt)

	return err
}

func (r *PostgresRepository) GetLogEntry(ctx context.Context, id string) (*models.LogEntry, error) {
	query := `SELECT * FROM log_entries WHERE id = $1`

	var entry models.LogEntry
	err := r.db.GetContext(ctx, &entry, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Entry not found
		}
		return nil, err
	}

	return &entry, nil
}

func (r *PostgresRepository) UpdateLogEntry(ctx context.Context, entry *models.LogEntry) error {
	query := `
		UPDATE log_entries
		SET malas = $1, hours = $2, minutes = $3, mantras = $4,
			entry_date = $5, notes = $6, updated_at = $7
		WHERE id = $8
	`

	entry.UpdatedAt = time.Now().UTC()

	_, err := r.db.ExecContext(ctx, query,
		entry.Malas, entry.Hours, entry.Minutes, entry.Mantras,
		entry.EntryDate, entry.Notes, entry.UpdatedAt, entry.ID)

	return err
}

func (r *PostgresRepository) DeleteLogEntry(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM log_entries WHERE id = $1`, id)
	return err
}

func (r *PostgresRepository) ListEntriesForTracked(ctx context.Context, userID, trackedID string) ([]models.LogEntry, error) {
	query := `
		SELECT * FROM log_entries
		WHERE user_id = $1 AND tracked_practice_id = $2
		ORDER BY entry_date DESC, created_at DESC
	`

	var entries []models.LogEntry
	err := r.db.SelectContext(ctx, &entries, query, userID, trackedID)
	if err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *PostgresRepository) ListEntriesForUser(ctx context.Context, userID string, limit, offset int) ([]models.LogEntry, error) {
	query := `
		SELECT * FROM log_entries
		WHERE user_id = $1
		ORDER BY entry_date DESC, created_at DESC
		LIMIT $2 OFFSET $3
	`

	var entries []models.LogEntry
	err := r.db.SelectContext(ctx, &entries, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}

	return entries, nil
}
