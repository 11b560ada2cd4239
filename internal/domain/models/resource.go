package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Resource is a shared educational resource (notes, slides, past papers).
type Resource struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Title   string             `bson:"title" json:"title"`
	Subject string             `bson:"subject,omitempty" json:"subject,omitempty"`
	Type    string             `bson:"type" json:"type"`     // e.g. "notes", "slides", "paper"
	Status  string             `bson:"status" json:"status"` // "active" or "disabled"

	UploadedByID   *primitive.ObjectID `bson:"uploaded_by_id,omitempty" json:"uploaded_by_id,omitempty"`
	UploadedByName string              `bson:"uploaded_by_name,omitempty" json:"uploaded_by_name,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Download records one download of a resource.
type Download struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	ResourceID primitive.ObjectID  `bson:"resource_id" json:"resource_id"`
	UserID     *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	CreatedAt  time.Time           `bson:"created_at" json:"created_at"`
}
