package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

// FixturePassword is the plain-text password given to every fixture user.
const FixturePassword = "correct horse battery staple"

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser inserts an active user whose password is FixturePassword.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string) models.User {
	f.t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte(FixturePassword), bcrypt.MinCost)
	if err != nil {
		f.t.Fatalf("failed to hash fixture password: %v", err)
	}

	now := time.Now().UTC()
	user := models.User{
		ID:           primitive.NewObjectID(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Status:       "active",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := f.db.Collection("users").InsertOne(ctx, user); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// CreateAdmin creates a test admin user.
func (f *Fixtures) CreateAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleAdmin)
}

// CreateFaculty creates a test faculty user.
func (f *Fixtures) CreateFaculty(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleFaculty)
}

// CreateStudent creates a test student user.
func (f *Fixtures) CreateStudent(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, models.RoleStudent)
}

// CreateDisabledUser creates a student whose status is disabled.
func (f *Fixtures) CreateDisabledUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	u := f.CreateUser(ctx, fullName, email, models.RoleStudent)
	if _, err := f.db.Collection("users").UpdateByID(ctx, u.ID,
		bson.M{"$set": bson.M{"status": "disabled"}}); err != nil {
		f.t.Fatalf("failed to disable test user: %v", err)
	}
	u.Status = "disabled"
	return u
}

// MarkActive sets a user's last_active_at.
func (f *Fixtures) MarkActive(ctx context.Context, userID primitive.ObjectID, at time.Time) {
	f.t.Helper()
	if _, err := f.db.Collection("users").UpdateByID(ctx, userID,
		bson.M{"$set": bson.M{"last_active_at": at}}); err != nil {
		f.t.Fatalf("failed to mark user active: %v", err)
	}
}

// CreateResource inserts an active resource created at the given time.
func (f *Fixtures) CreateResource(ctx context.Context, title string, createdAt time.Time) models.Resource {
	f.t.Helper()

	res := models.Resource{
		ID:        primitive.NewObjectID(),
		Title:     title,
		Subject:   "General",
		Type:      "notes",
		Status:    "active",
		CreatedAt: createdAt.UTC(),
	}
	if _, err := f.db.Collection("resources").InsertOne(ctx, res); err != nil {
		f.t.Fatalf("failed to create test resource: %v", err)
	}
	return res
}

// CreateDownload records a download of resourceID.
func (f *Fixtures) CreateDownload(ctx context.Context, resourceID primitive.ObjectID, userID *primitive.ObjectID) models.Download {
	f.t.Helper()

	d := models.Download{
		ID:         primitive.NewObjectID(),
		ResourceID: resourceID,
		UserID:     userID,
		CreatedAt:  time.Now().UTC(),
	}
	if _, err := f.db.Collection("downloads").InsertOne(ctx, d); err != nil {
		f.t.Fatalf("failed to create test download: %v", err)
	}
	return d
}
