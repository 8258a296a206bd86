package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/drupchen/dupr-server/internal/access"
	"github.com/drupchen/dupr-server/internal/ledger"
	"github.com/drupchen/dupr-server/internal/models"
	"github.com/drupchen/dupr-server/internal/repository"
	"github.com/drupchen/dupr-server/internal/utils"
)

const entryDateLayout = "2006-01-02"

// Sentinel errors the API layer maps to responses
var (
	ErrNotFound         = errors.New("resource not found")
	ErrAccessDenied     = errors.New("access denied")
	ErrForbidden        = errors.New("operation not permitted")
	ErrPracticeArchived = errors.New("tracked practice is archived")
	ErrInvalidEntryDate = errors.New("entry date must be YYYY-MM-DD")
	ErrEmailTaken       = errors.New("user with this email already exists")
	ErrBadCredentials   = errors.New("invalid email or password")
)

// Service defines all the business logic operations
type Service interface {
	// Authentication
	SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error)

	// Teachings. viewerID may be empty for anonymous viewers.
	ListTeachings(ctx context.Context, viewerID string) ([]models.Teaching, error)
	GetTeaching(ctx context.Context, viewerID, slug string) (*models.Teaching, error)

	// Admin operations (staff only)
	CreateTeaching(ctx context.Context, actorID string, req models.CreateTeachingRequest) (*models.Teaching, error)
	CreateCategory(ctx context.Context, actorID string, req models.CreateCategoryRequest) (*models.Category, error)
	ListCategories(ctx context.Context) ([]models.Category, error)
	SetUserCategories(ctx context.Context, actorID, userID string, slugs []string) error
	CreateDefinition(ctx context.Context, actorID string, req models.CreateDefinitionRequest) (*models.PracticeDefinition, error)
	DeleteDefinition(ctx context.Context, actorID, definitionID string) error

	// Practice tracker
	ListAvailableDefinitions(ctx context.Context, userID string) ([]models.PracticeDefinition, error)
	StartTracking(ctx context.Context, userID string, req models.StartTrackingRequest) (*models.TrackedPractice, error)
	SetTrackedPracticeActive(ctx context.Context, userID, trackedID string, active bool) (*models.TrackedPractice, error)
	CreateLogEntry(ctx context.Context, userID string, req models.CreateLogEntryRequest) (*models.LogEntry, error)
	UpdateLogEntry(ctx context.Context, userID, entryID string, req models.UpdateLogEntryRequest) (*models.LogEntry, error)
	DeleteLogEntry(ctx context.Context, userID, entryID string) error
	Dashboard(ctx context.Context, userID string) (*models.DashboardResponse, error)
	History(ctx context.Context, userID string, page int) ([]models.LogEntry, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo          repository.Repository
	logger        *utils.Logger
	jwtSecret     []byte
	tokenDuration time.Duration
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, jwtSecret string, logger *utils.Logger) Service {
	return &DefaultService{
		repo:          repo,
		logger:        logger,
		jwtSecret:     []byte(jwtSecret),
		tokenDuration: 24 * time.Hour, // 24 hours token validity
	}
}

// Authentication methods
func (s *DefaultService) SignUp(ctx context.Context, req models.SignUpRequest) (*models.AuthResponse, error) {
	// Check if user already exists
	existingUser, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}

	if existingUser != nil {
		return nil, ErrEmailTaken
	}

	// Hash the password
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	// Create the user. Staff status is only ever granted out of band.
	user := &models.User{
		Email:    req.Email,
		Name:     req.Name,
		Password: string(hashedPassword),
		IsStaff:  false,
	}

	// The email constraint settles concurrent signups, not the
	// pre-check above
	if err := s.repo.CreateUser(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return &models.AuthResponse{
		Status: "success",
		UserID: user.ID,
		Email:  user.Email,
		Name:   user.Name,
	}, nil
}

func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResponse, error) {
	// Get the user
	user, err := s.repo.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, ErrBadCredentials
	}

	// Verify password
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, ErrBadCredentials
	}

	// Generate JWT token
	token, err := s.generateJWT(user)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	return &models.AuthResponse{
		Status:    "success",
		UserID:    user.ID,
		Token:     token,
		ExpiresIn: int(s.tokenDuration.Seconds()),
	}, nil
}

// Teaching methods

// resolveViewer loads the access-evaluator view of a user. An empty
// or unknown viewerID resolves to an anonymous viewer.
func (s *DefaultService) resolveViewer(ctx context.Context, viewerID string) (access.Viewer, error) {
	if viewerID == "" {
		return access.Viewer{}, nil
	}

	user, err := s.repo.GetUserByID(ctx, viewerID)
	if err != nil {
		return access.Viewer{}, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return access.Viewer{}, nil
	}

	categories, err := s.repo.GetUserCategorySlugs(ctx, user.ID)
	if err != nil {
		return access.Viewer{}, fmt.Errorf("error getting user categories: %w", err)
	}

	return access.Viewer{
		Authenticated: true,
		Elevated:      user.IsStaff,
		Categories:    categories,
	}, nil
}

// ListTeachings returns only the teachings the viewer may see
func (s *DefaultService) ListTeachings(ctx context.Context, viewerID string) ([]models.Teaching, error) {
	viewer, err := s.resolveViewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	teachings, err := s.repo.ListTeachings(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing teachings: %w", err)
	}

	visible := make([]models.Teaching, 0, len(teachings))
	for _, t := range teachings {
		if access.CanView(viewer, access.Content{Categories: t.Categories}) {
			visible = append(visible, t)
		}
	}

	return visible, nil
}

func (s *DefaultService) GetTeaching(ctx context.Context, viewerID, slug string) (*models.Teaching, error) {
	viewer, err := s.resolveViewer(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	teaching, err := s.repo.GetTeachingBySlug(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("error getting teaching: %w", err)
	}

	if teaching == nil {
		return nil, ErrNotFound
	}

	if !access.CanView(viewer, access.Content{Categories: teaching.Categories}) {
		return nil, ErrAccessDenied
	}

	return teaching, nil
}

// Admin methods

// requireStaff verifies the acting user holds elevated access
func (s *DefaultService) requireStaff(ctx context.Context, actorID string) error {
	actor, err := s.repo.GetUserByID(ctx, actorID)
	if err != nil {
		return fmt.Errorf("error getting user: %w", err)
	}

	if actor == nil || !actor.IsStaff {
		return ErrForbidden
	}

	return nil
}

func (s *DefaultService) CreateTeaching(ctx context.Context, actorID string, req models.CreateTeachingRequest) (*models.Teaching, error) {
	if err := s.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}

	categories, err := s.repo.GetCategoriesBySlugs(ctx, req.Categories)
	if err != nil {
		return nil, fmt.Errorf("error resolving categories: %w", err)
	}

	if len(categories) != len(req.Categories) {
		return nil, fmt.Errorf("unknown category: %w", ErrNotFound)
	}

	categoryIDs := make([]string, len(categories))
	slugs := make([]string, len(categories))
	for i, c := range categories {
		categoryIDs[i] = c.ID
		slugs[i] = c.Slug
	}

	teaching := &models.Teaching{
		Slug:  req.Slug,
		Title: req.Title,
		Body:  req.Body,
	}

	if err := s.repo.CreateTeaching(ctx, teaching, categoryIDs); err != nil {
		return nil, fmt.Errorf("error creating teaching: %w", err)
	}

	teaching.Categories = slugs
	return teaching, nil
}

func (s *DefaultService) CreateCategory(ctx context.Context, actorID string, req models.CreateCategoryRequest) (*models.Category, error) {
	if err := s.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}

	category := &models.Category{
		Slug: req.Slug,
		Name: req.Name,
	}

	if err := s.repo.CreateCategory(ctx, category); err != nil {
		return nil, fmt.Errorf("error creating category: %w", err)
	}

	return category, nil
}

func (s *DefaultService) ListCategories(ctx context.Context) ([]models.Category, error) {
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}

	return categories, nil
}

func (s *DefaultService) SetUserCategories(ctx context.Context, actorID, userID string, slugs []string) error {
	if err := s.requireStaff(ctx, actorID); err != nil {
		return err
	}

	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return ErrNotFound
	}

	categories, err := s.repo.GetCategoriesBySlugs(ctx, slugs)
	if err != nil {
		return fmt.Errorf("error resolving categories: %w", err)
	}

	if len(categories) != len(slugs) {
		return fmt.Errorf("unknown category: %w", ErrNotFound)
	}

	categoryIDs := make([]string, len(categories))
	for i, c := range categories {
		categoryIDs[i] = c.ID
	}

	if err := s.repo.SetUserCategories(ctx, userID, categoryIDs); err != nil {
		return fmt.Errorf("error setting user categories: %w", err)
	}

	return nil
}

func (s *DefaultService) CreateDefinition(ctx context.Context, actorID string, req models.CreateDefinitionRequest) (*models.PracticeDefinition, error) {
	if err := s.requireStaff(ctx, actorID); err != nil {
		return nil, err
	}

	def := &models.PracticeDefinition{
		Slug:     req.Slug,
		Name:     req.Name,
		Kind:     req.Kind,
		IsActive: true,
	}

	if err := s.repo.CreateDefinition(ctx, def); err != nil {
		return nil, fmt.Errorf("error creating definition: %w", err)
	}

	return def, nil
}

func (s *DefaultService) DeleteDefinition(ctx context.Context, actorID, definitionID string) error {
	if err := s.requireStaff(ctx, actorID); err != nil {
		return err
	}

	def, err := s.repo.GetDefinitionByID(ctx, definitionID)
	if err != nil {
		return fmt.Errorf("error getting definition: %w", err)
	}

	if def == nil {
		return ErrNotFound
	}

	if err := s.repo.DeleteDefinition(ctx, definitionID); err != nil {
		return fmt.Errorf("error deleting definition: %w", err)
	}

	return nil
}

// Practice tracker methods
func (s *DefaultService) ListAvailableDefinitions(ctx context.Context, userID string) ([]models.PracticeDefinition, error) {
	defs, err := s.repo.ListAvailableDefinitions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing definitions: %w", err)
	}

	return defs, nil
}

func (s *DefaultService) StartTracking(ctx context.Context, userID string, req models.StartTrackingRequest) (*models.TrackedPractice, error) {
	def, err := s.repo.GetDefinitionByID(ctx, req.DefinitionID)
	if err != nil {
		return nil, fmt.Errorf("error getting definition: %w", err)
	}

	if def == nil || !def.IsActive {
		return nil, ErrNotFound
	}

	tracked := &models.TrackedPractice{
		UserID:       userID,
		DefinitionID: def.ID,
		IsActive:     true,
	}

	// The repository surfaces the uniqueness conflict as
	// ErrAlreadyTracked; it passes through untouched.
	if err := s.repo.CreateTrackedPractice(ctx, tracked); err != nil {
		return nil, err
	}

	return tracked, nil
}

// SetTrackedPracticeActive archives or restores a tracked practice.
// A flag flip only: existing entries stay and keep counting.
func (s *DefaultService) SetTrackedPracticeActive(ctx context.Context, userID, trackedID string, active bool) (*models.TrackedPractice, error) {
	tracked, err := s.repo.GetTrackedPractice(ctx, trackedID)
	if err != nil {
		return nil, fmt.Errorf("error getting tracked practice: %w", err)
	}

	if tracked == nil {
		return nil, ErrNotFound
	}

	if tracked.UserID != userID {
		return nil, ErrForbidden
	}

	if err := s.repo.SetTrackedPracticeActive(ctx, trackedID, active); err != nil {
		return nil, fmt.Errorf("error updating tracked practice: %w", err)
	}

	tracked.IsActive = active
	return tracked, nil
}

func (s *DefaultService) CreateLogEntry(ctx context.Context, userID string, req models.CreateLogEntryRequest) (*models.LogEntry, error) {
	tracked, err := s.repo.GetTrackedPractice(ctx, req.TrackedPracticeID)
	if err != nil {
		return nil, fmt.Errorf("error getting tracked practice: %w", err)
	}

	if tracked == nil {
		return nil, ErrNotFound
	}

	if tracked.UserID != userID {
		return nil, ErrForbidden
	}

	if !tracked.IsActive {
		return nil, ErrPracticeArchived
	}

	validated, err := ledger.Validate(ledger.Candidate{
		Malas:   req.Malas,
		Hours:   req.Hours,
		Minutes: req.Minutes,
	})
	if err != nil {
		return nil, err
	}

	entryDate, err := parseEntryDate(req.EntryDate)
	if err != nil {
		return nil, err
	}

	entry := models.LogEntry{
		Malas:     validated.Malas,
		Hours:     validated.Hours,
		Minutes:   validated.Minutes,
		EntryDate: entryDate,
		Notes:     req.Notes,
	}

	entry = ledger.PrepareForStorage(entry, *tracked)

	if err := s.repo.CreateLogEntry(ctx, &entry); err != nil {
		return nil, fmt.Errorf("error creating log entry: %w", err)
	}

	return &entry, nil
}

func (s *DefaultService) UpdateLogEntry(ctx context.Context, userID, entryID string, req models.UpdateLogEntryRequest) (*models.LogEntry, error) {
	entry, tracked, err := s.getOwnedEntry(ctx, userID, entryID)
	if err != nil {
		return nil, err
	}

	validated, err := ledger.Validate(ledger.Candidate{
		Malas:   req.Malas,
		Hours:   req.Hours,
		Minutes: req.Minutes,
	})
	if err != nil {
		return nil, err
	}

	if req.EntryDate != "" {
		entryDate, err := parseEntryDate(req.EntryDate)
		if err != nil {
			return nil, err
		}
		entry.EntryDate = entryDate
	}

	entry.Malas = validated.Malas
	entry.Hours = validated.Hours
	entry.Minutes = validated.Minutes
	entry.Notes = req.Notes

	// Re-derive owner and mantras on every write
	*entry = ledger.PrepareForStorage(*entry, *tracked)

	if err := s.repo.UpdateLogEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("error updating log entry: %w", err)
	}

	return entry, nil
}

func (s *DefaultService) DeleteLogEntry(ctx context.Context, userID, entryID string) error {
	_, _, err := s.getOwnedEntry(ctx, userID, entryID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteLogEntry(ctx, entryID); err != nil {
		return fmt.Errorf("error deleting log entry: %w", err)
	}

	return nil
}

// getOwnedEntry loads an entry and its tracked practice, enforcing
// that userID owns both. An entry whose denormalized owner disagrees
// with its tracked practice indicates a caller bug upstream and is
// reported, never silently corrected.
func (s *DefaultService) getOwnedEntry(ctx context.Context, userID, entryID string) (*models.LogEntry, *models.TrackedPractice, error) {
	entry, err := s.repo.GetLogEntry(ctx, entryID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting log entry: %w", err)
	}

	if entry == nil {
		return nil, nil, ErrNotFound
	}

	if entry.UserID != userID {
		return nil, nil, ErrForbidden
	}

	tracked, err := s.repo.GetTrackedPractice(ctx, entry.TrackedPracticeID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting tracked practice: %w", err)
	}

	if tracked == nil {
		return nil, nil, ErrNotFound
	}

	if err := ledger.VerifyOwner(*entry, *tracked); err != nil {
		s.logger.Error("ownership mismatch on log entry %s: entry owner %s, practice owner %s",
			entry.ID, entry.UserID, tracked.UserID)
		return nil, nil, err
	}

	return entry, tracked, nil
}

func (s *DefaultService) Dashboard(ctx context.Context, userID string) (*models.DashboardResponse, error) {
	trackedList, err := s.repo.ListTrackedPractices(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("error listing tracked practices: %w", err)
	}

	summaries := make([]models.PracticeSummary, 0, len(trackedList))
	for _, tracked := range trackedList {
		entries, err := s.repo.ListEntriesForTracked(ctx, userID, tracked.ID)
		if err != nil {
			return nil, fmt.Errorf("error listing entries: %w", err)
		}

		summary := ledger.Summarize(entries)

		def, err := s.repo.GetDefinitionByID(ctx, tracked.DefinitionID)
		if err != nil {
			return nil, fmt.Errorf("error getting definition: %w", err)
		}

		definitionName := ""
		if def != nil {
			definitionName = def.Name
		}

		summaries = append(summaries, models.PracticeSummary{
			Tracked:        tracked,
			DefinitionName: definitionName,
			TotalMalas:     summary.TotalMalas,
			TotalMantras:   summary.TotalMantras,
			TotalHours:     summary.TotalHours,
			TotalMinutes:   summary.TotalMinutes,
			HasEntries:     summary.HasEntries,
		})
	}

	recent, err := s.repo.ListEntriesForUser(ctx, userID, 10, 0)
	if err != nil {
		return nil, fmt.Errorf("error listing recent entries: %w", err)
	}

	return &models.DashboardResponse{
		Status:        "success",
		Practices:     summaries,
		RecentEntries: recent,
	}, nil
}

func (s *DefaultService) History(ctx context.Context, userID string, page int) ([]models.LogEntry, error) {
	const pageSize = 20

	if page < 1 {
		page = 1
	}

	entries, err := s.repo.ListEntriesForUser(ctx, userID, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("error listing entries: %w", err)
	}

	return entries, nil
}

// Helper methods
func (s *DefaultService) generateJWT(user *models.User) (string, error) {
	expirationTime := time.Now().Add(s.tokenDuration)

	claims := jwt.MapClaims{
		"sub": user.ID, // subject
		"exp": expirationTime.Unix(),
		"iat": time.Now().Unix(), // issued at
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

func parseEntryDate(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}

	date, err := time.Parse(entryDateLayout, value)
	if err != nil {
		return time.Time{}, ErrInvalidEntryDate
	}

	return date, nil
}
