package testutils

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"golang.org/x/crypto/bcrypt"

	"github.com/drupchen/dupr-server/internal/api"
	"github.com/drupchen/dupr-server/internal/config"
	"github.com/drupchen/dupr-server/internal/models"
	"github.com/drupchen/dupr-server/internal/repository"
	"github.com/drupchen/dupr-server/internal/service"
	"github.com/drupchen/dupr-server/internal/utils"
)

// TestContext holds all dependencies for tests
type TestContext struct {
	Router       *gin.Engine
	Repository   repository.Repository
	Service      service.Service
	JWTSecret    []byte
	DB           *sqlx.DB
	TestUserID   string
	TestUserJWT  string
	StaffUserID  string
	StaffUserJWT string
}

// SetupTestContext creates a new test context with initialized dependencies
func SetupTestContext(t *testing.T) *TestContext {
	// Load configuration from environment
	cfg := config.LoadConfig()

	// The suite deletes every table between runs, so it must never
	// point at the configured application database
	if cfg.Database.TestDBName != "" {
		cfg.Database.DBName = cfg.Database.TestDBName
	} else {
		cfg.Database.DBName = "dupr_test"
	}

	// Use a test JWT secret
	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "test-secret-key"
	}

	// Set up database
	db, err := config.SetupDatabase(cfg)
	assert.NoError(t, err, "Failed to set up test database")

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Create service
	svc := service.NewDefaultService(repo, cfg.Auth.JWTSecret, utils.NewLogger())

	// Create API handler
	handler := api.NewHandler(svc, cfg.Navigation)

	// Set up Gin router
	gin.SetMode(gin.TestMode)
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Clean up leftovers from earlier runs, then create test users
	cleanupTestDatabase(t, repo)
	testUserID, testToken := createTestUser(t, repo, cfg.Auth.JWTSecret, "testuser@example.com", false)
	staffUserID, staffToken := createTestUser(t, repo, cfg.Auth.JWTSecret, "staff@example.com", true)

	return &TestContext{
		Router:       router,
		Repository:   repo,
		Service:      svc,
		JWTSecret:    []byte(cfg.Auth.JWTSecret),
		DB:           db,
		TestUserID:   testUserID,
		TestUserJWT:  testToken,
		StaffUserID:  staffUserID,
		StaffUserJWT: staffToken,
	}
}

// CleanupTestContext cleans up test resources
func CleanupTestContext(t *TestContext) {
	// Clean up database
	if t.DB != nil {
		cleanupTestDatabase(nil, t.Repository)
		t.DB.Close()
	}
}

// cleanupTestDatabase removes any existing test users and data
func cleanupTestDatabase(t *testing.T, repo repository.Repository) {
	// Execute cleanup SQL directly through the DB connection
	pgRepo, ok := repo.(*repository.PostgresRepository)
	if !ok {
		return
	}
	db := pgRepo.GetDB()

	// Child tables first, then their parents
	tables := []string{
		"log_entries",
		"tracked_practices",
		"practice_definitions",
		"teaching_categories",
		"teachings",
		"user_categories",
		"categories",
		"users",
	}

	for _, table := range tables {
		_, err := db.Exec("DELETE FROM " + table)
		if t != nil && err != nil {
			t.Logf("Warning: Failed to clean %s: %v", table, err)
		}
	}
}

// Helper functions
func createTestUser(t *testing.T, repo repository.Repository, jwtSecret, email string, isStaff bool) (string, string) {
	hashedPassword, _ := bcrypt.GenerateFromPassword([]byte("testpassword"), bcrypt.DefaultCost)

	user := &models.User{
		ID:       uuid.New().String(),
		Email:    email,
		Name:     "Test User",
		Password: string(hashedPassword),
		IsStaff:  isStaff,
	}

	err := repo.CreateUser(context.Background(), user)
	assert.NoError(t, err, "Failed to create test user")

	// Generate JWT token with the provided secret key
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": user.ID,
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	})

	tokenString, err := token.SignedString([]byte(jwtSecret))
	assert.NoError(t, err, "Failed to generate JWT token")

	return user.ID, tokenString
}

// CreateCategory inserts a category directly through the repository
func CreateCategory(t *testing.T, repo repository.Repository, slug, name string) models.Category {
	category := models.Category{Slug: slug, Name: name}
	err := repo.CreateCategory(context.Background(), &category)
	assert.NoError(t, err, "Failed to create category")
	return category
}

// CreateDefinition inserts a practice definition directly through the repository
func CreateDefinition(t *testing.T, repo repository.Repository, slug, name, kind string) models.PracticeDefinition {
	def := models.PracticeDefinition{Slug: slug, Name: name, Kind: kind, IsActive: true}
	err := repo.CreateDefinition(context.Background(), &def)
	assert.NoError(t, err, "Failed to create definition")
	return def
}

// PerformRequest executes an HTTP request against the router
func PerformRequest(r http.Handler, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer

	if body != nil {
		jsonBody, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBody)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// AuthHeaders returns headers with Authorization token
func AuthHeaders(token string) map[string]string {
	return map[string]string{
		"Authorization": fmt.Sprintf("Bearer %s", token),
	}
}
