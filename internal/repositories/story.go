package repositories

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sbilibin2017/gw-login/internal/logger"
	"github.com/sbilibin2017/gw-login/internal/models"
)

// StoryMemoryRepository keeps stories for the lifetime of the process.
type StoryMemoryRepository struct {
	mu      sync.RWMutex
	nextID  int64
	stories map[int64]models.Story
	now     func() time.Time
}

func NewStoryMemoryRepository() *StoryMemoryRepository {
	return &StoryMemoryRepository{
		stories: make(map[int64]models.Story),
		now:     time.Now,
	}
}

// Create stores a new story stamped with the current UTC time.
func (r *StoryMemoryRepository) Create(ctx context.Context, userID uuid.UUID, content string) (*models.Story, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	story := models.Story{
		StoryID:       r.nextID,
		UserID:        userID,
		Content:       content,
		PublishedDate: r.now().UTC(),
	}
	r.stories[story.StoryID] = story
	return &story, nil
}

// GetByID returns the story or nil when it does not exist.
func (r *StoryMemoryRepository) GetByID(ctx context.Context, storyID int64) (*models.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	story, ok := r.stories[storyID]
	if !ok {
		return nil, nil
	}
	return &story, nil
}

// ListByUser returns the user's stories, oldest first.
func (r *StoryMemoryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Story, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stories := make([]models.Story, 0)
	for _, s := range r.stories {
		if s.UserID == userID {
			stories = append(stories, s)
		}
	}
	sort.Slice(stories, func(i, j int) bool { return stories[i].StoryID < stories[j].StoryID })
	return stories, nil
}

// StoryPostgresRepository stores stories in the stories table.
type StoryPostgresRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewStoryPostgresRepository(db *sqlx.DB) *StoryPostgresRepository {
	return &StoryPostgresRepository{db: db, now: time.Now}
}

func (r *StoryPostgresRepository) Create(ctx context.Context, userID uuid.UUID, content string) (*models.Story, error) {
	const query = `
		INSERT INTO stories (user_id, story_content, published_date)
		VALUES ($1, $2, $3)
		RETURNING story_id, user_id, story_content, published_date
	`

	var story models.Story
	err := r.db.GetContext(ctx, &story, query, userID, content, r.now().UTC())
	if err != nil {
		logger.Log.Errorw("failed to insert story", "user_id", userID, "error", err)
		return nil, err
	}

	logger.Log.Infow("story published", "story_id", story.StoryID, "user_id", userID)
	return &story, nil
}

func (r *StoryPostgresRepository) GetByID(ctx context.Context, storyID int64) (*models.Story, error) {
	const query = `
		SELECT story_id, user_id, story_content, published_date
		FROM stories
		WHERE story_id = $1
	`

	var story models.Story
	err := r.db.GetContext(ctx, &story, query, storyID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		logger.Log.Errorw("failed to read story", "story_id", storyID, "error", err)
		return nil, err
	}
	return &story, nil
}

func (r *StoryPostgresRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.Story, error) {
	const query = `
		SELECT story_id, user_id, story_content, published_date
		FROM stories
		WHERE user_id = $1
		ORDER BY story_id
	`

	stories := make([]models.Story, 0)
	if err := r.db.SelectContext(ctx, &stories, query, userID); err != nil {
		logger.Log.Errorw("failed to list stories", "user_id", userID, "error", err)
		return nil, err
	}
	return stories, nil
}
