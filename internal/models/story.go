package models

import (
	"time"

	"github.com/google/uuid"
)

// Story is a piece of writing published by a signed in user.
// swagger:model Story
type Story struct {
	StoryID       int64     `json:"story_id" db:"story_id"`
	UserID        uuid.UUID `json:"user_id" db:"user_id"`
	Content       string    `json:"story_content" db:"story_content"`
	PublishedDate time.Time `json:"published_date" db:"published_date"`
}

// StoryRequest is the body of PUT /api/v1/stories/new-story.
// swagger:model StoryRequest
type StoryRequest struct {
	UserID  uuid.UUID `json:"user_id"`
	Content string    `json:"content"`
}

// ErrorResponse is the error body of the stories API.
// swagger:model ErrorResponse
type ErrorResponse struct {
	Error string `json:"error"`
}
