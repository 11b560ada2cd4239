package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/auth"
	"github.com/dalemusser/edusync/internal/app/system/normalize"
	"github.com/dalemusser/edusync/internal/app/system/timeouts"
	"github.com/dalemusser/edusync/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// activeTouchEvery limits how often last_active_at is rewritten per user.
const activeTouchEvery = time.Minute

// Fetcher implements auth.UserFetcher to load fresh user data on each request.
type Fetcher struct {
	users *mongo.Collection
	log   *zap.Logger
	now   func() time.Time
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{users: db.Collection("users"), log: logger, now: time.Now}
}

// FetchUser retrieves a user by ID. A missing, malformed, or disabled user
// yields (nil, nil) so the request continues anonymously; a database error
// is returned so the caller can treat the session as still resolving.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) (*auth.SessionUser, error) {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":            1,
		"full_name":      1,
		"email":          1,
		"role":           1,
		"status":         1,
		"last_active_at": 1,
	})
	if err := f.users.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}

	if normalize.Status(u.Status) == "disabled" {
		return nil, nil
	}

	now := f.now()
	if u.LastActiveAt == nil || now.Sub(*u.LastActiveAt) >= activeTouchEvery {
		if _, err := f.users.UpdateOne(ctx, bson.M{"_id": oid},
			bson.M{"$set": bson.M{"last_active_at": now.UTC()}}); err != nil {
			f.log.Warn("failed to record user activity", zap.String("user_id", userID), zap.Error(err))
		}
	}

	return &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  normalize.Role(u.Role),
	}, nil
}
