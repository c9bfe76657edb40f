package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Collection is a named logical grouping of media entries.
// A media entry may belong to any number of collections; deleting a collection
// removes only the membership rows, never the member media.
type Collection struct {
	// ID is an opaque unique identifier, generated at creation.
	ID string `json:"id"`

	// Name is unique across all collections.
	Name string `json:"name"`

	// Description is optional free text.
	Description string `json:"description,omitempty"`

	// CreatedAt is when the collection was created.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is bumped on rename or description change.
	UpdatedAt time.Time `json:"updated_at"`

	// MediaCount is the number of member media entries. Populated on reads,
	// not stored.
	MediaCount int `json:"media_count"`
}

// NewCollection creates a Collection with a fresh UUID and timestamps.
func NewCollection(name, description string) *Collection {
	now := time.Now().UTC()
	return &Collection{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// ValidateCollectionName checks a collection name before creation or rename.
func ValidateCollectionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrCollectionNameEmpty
	}
	return nil
}

// Membership associates a collection with a media entry.
// The (CollectionID, MediaID) pair is the composite key; duplicate rows are
// rejected by the persistence layer.
type Membership struct {
	CollectionID string    `json:"collection_id"`
	MediaID      string    `json:"media_id"`
	AddedAt      time.Time `json:"added_at"`
}
