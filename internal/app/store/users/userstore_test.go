package userstore_test

import (
	"errors"
	"testing"
	"time"

	userstore "github.com/dalemusser/edusync/internal/app/store/users"
	"github.com/dalemusser/edusync/internal/domain/models"
	"github.com/dalemusser/edusync/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

func ensureEmailIndex(t *testing.T, db *mongo.Database) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()
	_, err := db.Collection("users").Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		t.Fatalf("create email index: %v", err)
	}
}

func TestStore_Create(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	created, err := store.Create(ctx, models.User{
		FullName: "  Grace   Hopper ",
		Email:    "Grace@Example.com",
		Role:     "Faculty",
	}, "s3cret")
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.FullName != "Grace Hopper" {
		t.Errorf("FullName: got %q", created.FullName)
	}
	if created.Email != "grace@example.com" {
		t.Errorf("Email: got %q", created.Email)
	}
	if created.Role != models.RoleFaculty {
		t.Errorf("Role: got %q", created.Role)
	}
	if created.Status != "active" {
		t.Errorf("expected status 'active', got %q", created.Status)
	}
	if created.PasswordHash == "" || created.PasswordHash == "s3cret" {
		t.Error("expected password to be hashed")
	}
	if created.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestStore_Create_BadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.Create(ctx, models.User{FullName: "X", Email: "x@example.com", Role: "owner"}, "pw"); err == nil {
		t.Fatal("expected error for unknown role")
	}
}

func TestStore_Create_DuplicateEmail(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ensureEmailIndex(t, db)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := models.User{FullName: "A", Email: "dup@example.com", Role: models.RoleStudent}
	if _, err := store.Create(ctx, u, "pw"); err != nil {
		t.Fatalf("first Create failed: %v", err)
	}
	u.Email = "DUP@example.com"
	if _, err := store.Create(ctx, u, "pw"); !errors.Is(err, userstore.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestStore_GetByEmail_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if _, err := store.GetByEmail(ctx, "nobody@example.com"); !errors.Is(err, userstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := store.GetByID(ctx, primitive.NewObjectID()); !errors.Is(err, userstore.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Authenticate(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := userstore.New(db)
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateAdmin(ctx, "Admin", "admin@example.com")
	fixtures.CreateDisabledUser(ctx, "Gone", "gone@example.com")

	u, err := store.Authenticate(ctx, "ADMIN@example.com", testutil.FixturePassword)
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if u.ID != admin.ID {
		t.Errorf("got user %s, want %s", u.ID.Hex(), admin.ID.Hex())
	}

	tests := []struct {
		name, email, password string
	}{
		{"wrong password", "admin@example.com", "nope"},
		{"unknown email", "who@example.com", testutil.FixturePassword},
		{"disabled user", "gone@example.com", testutil.FixturePassword},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Authenticate(ctx, tt.email, tt.password); !errors.Is(err, userstore.ErrBadCredentials) {
				t.Errorf("expected ErrBadCredentials, got %v", err)
			}
		})
	}
}

func TestFetcher_FetchUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	fixtures := testutil.NewFixtures(t, db)
	fetcher := userstore.NewFetcher(db, zap.NewNop())
	store := userstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	faculty := fixtures.CreateFaculty(ctx, "Prof", "prof@example.com")
	disabled := fixtures.CreateDisabledUser(ctx, "Gone", "gone@example.com")

	su, err := fetcher.FetchUser(ctx, faculty.ID.Hex())
	if err != nil {
		t.Fatalf("FetchUser failed: %v", err)
	}
	if su == nil || su.Role != models.RoleFaculty || su.Name != "Prof" {
		t.Fatalf("unexpected session user: %+v", su)
	}

	stored, err := store.GetByID(ctx, faculty.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if stored.LastActiveAt == nil || time.Since(*stored.LastActiveAt) > time.Minute {
		t.Errorf("expected last_active_at to be bumped, got %v", stored.LastActiveAt)
	}

	for _, id := range []string{disabled.ID.Hex(), primitive.NewObjectID().Hex(), "not-an-id"} {
		su, err := fetcher.FetchUser(ctx, id)
		if err != nil {
			t.Errorf("FetchUser(%q) error: %v", id, err)
		}
		if su != nil {
			t.Errorf("FetchUser(%q) = %+v, want nil", id, su)
		}
	}
}
