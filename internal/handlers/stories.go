package handlers

//go:generate mockgen -source=stories.go -destination=mock_stories.go -package=handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-login/internal/logger"
	"github.com/sbilibin2017/gw-login/internal/middlewares"
	"github.com/sbilibin2017/gw-login/internal/models"
)

// StoryRepository stores published stories.
type StoryRepository interface {
	Create(ctx context.Context, userID uuid.UUID, content string) (*models.Story, error)
	GetByID(ctx context.Context, storyID int64) (*models.Story, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Story, error)
}

// AccountFinder resolves user ids to accounts.
type AccountFinder interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*models.Account, error)
}

// StoryDeps are the collaborators of the stories API.
// Accounts may be nil when the accounts live behind a remote service;
// then only the signed in user's own id is known.
type StoryDeps struct {
	Accounts AccountFinder
	Stories  StoryRepository
}

const (
	errInvalidUserID  = "invalid user id"
	errInvalidStoryID = "invalid story id"
	errForeignUser    = "stories can only be published for the signed in user"
	errInternal       = "internal server error"
)

// NewStoryListHandler returns an HTTP handler listing a user's stories.
// @Summary List stories of a user
// @Tags stories
// @Produce json
// @Param userId path string true "User ID"
// @Success 200 {array} models.Story
// @Failure 401 {object} models.ErrorResponse "User not logged in"
// @Failure 404 {object} models.ErrorResponse "Invalid user id"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /api/v1/stories/get-list/{userId} [get]
func NewStoryListHandler(deps StoryDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := uuid.Parse(chi.URLParam(r, "userId"))
		if err != nil {
			writeError(w, http.StatusNotFound, errInvalidUserID)
			return
		}

		known, err := deps.userKnown(ctx, userID)
		if err != nil {
			logger.Log.Errorw("failed to look up account", "user_id", userID, "err", err)
			writeError(w, http.StatusInternalServerError, errInternal)
			return
		}
		if !known {
			writeError(w, http.StatusNotFound, errInvalidUserID)
			return
		}

		stories, err := deps.Stories.ListByUser(ctx, userID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, errInternal)
			return
		}
		if stories == nil {
			stories = []models.Story{}
		}
		writeJSON(w, http.StatusOK, stories)
	}
}

// NewStoryGetHandler returns an HTTP handler for a single story.
// @Summary Get a story
// @Tags stories
// @Produce json
// @Param storyId path int true "Story ID"
// @Success 200 {object} models.Story
// @Failure 401 {object} models.ErrorResponse "User not logged in"
// @Failure 404 {object} models.ErrorResponse "Invalid story id"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /api/v1/stories/get-story/{storyId} [get]
func NewStoryGetHandler(deps StoryDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		storyID, err := strconv.ParseInt(chi.URLParam(r, "storyId"), 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, errInvalidStoryID)
			return
		}

		story, err := deps.Stories.GetByID(r.Context(), storyID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, errInternal)
			return
		}
		if story == nil {
			writeError(w, http.StatusNotFound, errInvalidStoryID)
			return
		}
		writeJSON(w, http.StatusOK, story)
	}
}

// NewStoryCreateHandler returns an HTTP handler publishing a story.
// @Summary Publish a story
// @Tags stories
// @Accept json
// @Produce json
// @Param storyRequest body models.StoryRequest true "Story"
// @Success 200 {object} models.Story
// @Failure 400 {object} models.ErrorResponse "Invalid request body"
// @Failure 401 {object} models.ErrorResponse "User not logged in"
// @Failure 403 {object} models.ErrorResponse "Story belongs to another user"
// @Failure 404 {object} models.ErrorResponse "Invalid user id"
// @Failure 500 {object} models.ErrorResponse "Internal server error"
// @Router /api/v1/stories/new-story [put]
func NewStoryCreateHandler(deps StoryDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req models.StoryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		session := middlewares.SessionFromContext(ctx)
		if session == nil || req.UserID != session.UserID {
			writeError(w, http.StatusForbidden, errForeignUser)
			return
		}

		known, err := deps.userKnown(ctx, req.UserID)
		if err != nil {
			logger.Log.Errorw("failed to look up account", "user_id", req.UserID, "err", err)
			writeError(w, http.StatusInternalServerError, errInternal)
			return
		}
		if !known {
			writeError(w, http.StatusNotFound, errInvalidUserID)
			return
		}

		story, err := deps.Stories.Create(ctx, req.UserID, req.Content)
		if err != nil {
			writeError(w, http.StatusInternalServerError, errInternal)
			return
		}
		writeJSON(w, http.StatusOK, story)
	}
}

func (d StoryDeps) userKnown(ctx context.Context, userID uuid.UUID) (bool, error) {
	if d.Accounts == nil {
		session := middlewares.SessionFromContext(ctx)
		return session != nil && session.UserID == userID, nil
	}
	account, err := d.Accounts.GetByID(ctx, userID)
	if err != nil {
		return false, err
	}
	return account != nil, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.Errorw("failed to write response", "err", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, models.ErrorResponse{Error: msg})
}
