package submitter

//go:generate mockgen -source=submitter.go -destination=mock_submitter.go -package=submitter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-login/internal/logger"
	"github.com/sbilibin2017/gw-login/internal/models"
)

// Authenticator checks credentials against an authentication backend.
type Authenticator interface {
	Authenticate(ctx context.Context, email, password string) (*models.Session, error)
}

// SessionStore keeps the session of a logged in user.
// Delete withdraws a session stored for a form that was unmounted before it could navigate.
type SessionStore interface {
	Set(ctx context.Context, session *models.Session) error
	Delete(ctx context.Context, token string) error
}

// Router moves the user away from the login form.
type Router interface {
	Navigate(ctx context.Context, session *models.Session)
}

// EventPublisher receives the terminal outcome of every submission that reached the authenticator.
type EventPublisher interface {
	Publish(ctx context.Context, event models.LoginEvent) error
}

// Observer is notified after every state change.
type Observer func(state models.SubmissionState)

// Option configures a CredentialSubmitter.
type Option func(*CredentialSubmitter)

// WithEventPublisher sets the publisher for login outcomes.
func WithEventPublisher(p EventPublisher) Option {
	return func(s *CredentialSubmitter) {
		s.events = p
	}
}

// WithPublishTimeout bounds how long Submit waits for the event publisher.
func WithPublishTimeout(d time.Duration) Option {
	return func(s *CredentialSubmitter) {
		s.publishTimeout = d
	}
}

// WithClock overrides the time source used for events.
func WithClock(now func() time.Time) Option {
	return func(s *CredentialSubmitter) {
		s.now = now
	}
}

const defaultPublishTimeout = 5 * time.Second

type subscription struct {
	id int
	fn Observer
}

// delivery is one committed state change waiting to reach the observers.
type delivery struct {
	seq   uint64
	state models.SubmissionState
	subs  []subscription
}

// CredentialSubmitter owns the state of one login form instance.
// All methods are safe for concurrent use. Observers see state changes in
// the order they were committed; a change superseded before it could be
// delivered is skipped. Observers may read State but must not edit, submit
// or unmount the form they observe.
type CredentialSubmitter struct {
	auth           Authenticator
	sessions       SessionStore
	router         Router
	events         EventPublisher
	now            func() time.Time
	publishTimeout time.Duration

	mu         sync.Mutex
	creds      models.Credentials
	state      models.SubmissionState
	seq        uint64
	generation uint64
	cancel     context.CancelFunc
	unmounted  bool
	observers  []subscription
	nextID     int

	// deliverMu orders observer calls. Lock order is deliverMu, then mu.
	deliverMu sync.Mutex
	delivered uint64
}

// New creates a mounted form in the Idle state.
func New(auth Authenticator, sessions SessionStore, router Router, opts ...Option) *CredentialSubmitter {
	s := &CredentialSubmitter{
		auth:     auth,
		sessions: sessions,
		router:   router,
		now:            time.Now,
		publishTimeout: defaultPublishTimeout,
		state:          models.IdleState(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// State returns a snapshot of the current submission state.
func (s *CredentialSubmitter) State() models.SubmissionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Credentials returns a copy of the current field values.
func (s *CredentialSubmitter) Credentials() models.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds
}

// Subscribe registers an observer and returns a function that removes it.
func (s *CredentialSubmitter) Subscribe(fn Observer) func() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	id := s.nextID
	s.observers = append(s.observers, subscription{id: id, fn: fn})

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for i, sub := range s.observers {
			if sub.id == id {
				s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
				return
			}
		}
	}
}

// SetEmail updates the email field. A failed form goes back to Idle.
func (s *CredentialSubmitter) SetEmail(value string) {
	s.edit(func(c *models.Credentials) { c.Email = value })
}

// SetPassword updates the password field. A failed form goes back to Idle.
func (s *CredentialSubmitter) SetPassword(value string) {
	s.edit(func(c *models.Credentials) { c.Password = value })
}

func (s *CredentialSubmitter) edit(apply func(*models.Credentials)) {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return
	}

	var d *delivery
	if s.state.Status == models.StatusFailed {
		next := s.commit(models.IdleState())
		d = &next
	}
	apply(&s.creds)
	s.mu.Unlock()

	if d != nil {
		s.notify(*d)
	}
}

// Submit validates the current credentials and, when they are acceptable,
// authenticates them and blocks until the authenticator answers.
//
// The returned state is the state the submission ended in. A second call
// while one is pending returns ErrSubmissionInProgress without reaching the
// authenticator. If the form is unmounted before the answer arrives, the
// answer is dropped and ErrUnmounted is returned; a session already stored
// for it is deleted again and no navigation happens.
func (s *CredentialSubmitter) Submit(ctx context.Context) (models.SubmissionState, error) {
	s.mu.Lock()
	if s.unmounted {
		s.mu.Unlock()
		return models.SubmissionState{}, ErrUnmounted
	}
	switch s.state.Status {
	case models.StatusPending:
		state := s.state
		s.mu.Unlock()
		return state, ErrSubmissionInProgress
	case models.StatusSucceeded:
		state := s.state
		s.mu.Unlock()
		return state, ErrAlreadySucceeded
	}

	creds := s.creds
	if fields := creds.Validate(); fields != nil {
		d := s.commit(models.FailedState(models.ReasonValidation, fields))
		s.mu.Unlock()

		s.notify(d)
		return d.state, &ValidationError{Fields: fields}
	}

	s.generation++
	gen := s.generation
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	d := s.commit(models.SubmissionState{Status: models.StatusPending})
	s.mu.Unlock()
	defer cancel()

	s.notify(d)

	session, err := s.authenticate(runCtx, creds)
	if err != nil {
		reason := models.ReasonFor(err)
		logger.Log.Infow("login failed", "email", creds.Email, "reason", reason, "err", err)

		state, ok := s.finish(gen, models.FailedState(reason, nil))
		if !ok {
			return state, ErrUnmounted
		}
		s.publish(runCtx, creds.Email, state)
		return state, err
	}

	if !s.current(gen) {
		return models.SubmissionState{}, ErrUnmounted
	}

	if err := s.sessions.Set(runCtx, session); err != nil {
		logger.Log.Errorw("failed to store session", "email", creds.Email, "err", err)

		state, ok := s.finish(gen, models.FailedState(models.ReasonSession, nil))
		if !ok {
			return state, ErrUnmounted
		}
		s.publish(runCtx, creds.Email, state)
		return state, fmt.Errorf("store session: %w", err)
	}

	state, ok := s.finish(gen, models.SubmissionState{Status: models.StatusSucceeded})
	if !ok {
		s.withdraw(runCtx, session)
		return state, ErrUnmounted
	}
	logger.Log.Infow("login succeeded", "email", creds.Email, "user_id", session.UserID)

	s.publish(runCtx, creds.Email, state)

	// Nobody is left to follow the navigation.
	if !s.current(gen) {
		s.withdraw(runCtx, session)
		return state, ErrUnmounted
	}
	s.router.Navigate(ctx, session)
	return state, nil
}

// Unmount detaches the form. A pending submission is cancelled and its
// result ignored; no observer is called afterwards.
func (s *CredentialSubmitter) Unmount() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unmounted {
		return
	}
	s.unmounted = true
	s.generation++
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.observers = nil
	s.creds = models.Credentials{}
}

// authenticate calls the authenticator and turns a panic into an error.
func (s *CredentialSubmitter) authenticate(ctx context.Context, creds models.Credentials) (session *models.Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Log.Errorw("authenticator panicked", "email", creds.Email, "panic", r)
			session, err = nil, fmt.Errorf("%w: %v", ErrCollaboratorPanic, r)
		}
	}()

	session, err = s.auth.Authenticate(ctx, creds.Email, creds.Password)
	if err == nil && session == nil {
		err = ErrNoSession
	}
	return session, err
}

// current reports whether gen still identifies the live submission.
func (s *CredentialSubmitter) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.unmounted && gen == s.generation
}

// finish commits the terminal state of submission gen, unless it went stale.
func (s *CredentialSubmitter) finish(gen uint64, next models.SubmissionState) (models.SubmissionState, bool) {
	s.mu.Lock()
	if s.unmounted || gen != s.generation {
		s.mu.Unlock()
		return models.SubmissionState{}, false
	}
	s.cancel = nil
	d := s.commit(next)
	s.mu.Unlock()

	s.notify(d)
	return next, true
}

// withdraw deletes a session stored on behalf of a form that is gone.
// The submission context is already cancelled at this point.
func (s *CredentialSubmitter) withdraw(ctx context.Context, session *models.Session) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.publishTimeout)
	defer cancel()

	if err := s.sessions.Delete(ctx, session.Token); err != nil {
		logger.Log.Errorw("failed to withdraw session of unmounted form", "user_id", session.UserID, "err", err)
		return
	}
	logger.Log.Infow("session withdrawn, form unmounted before navigation", "user_id", session.UserID)
}

func (s *CredentialSubmitter) publish(ctx context.Context, email string, state models.SubmissionState) {
	if s.events == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()

	event := models.LoginEvent{
		EventID:    uuid.New(),
		Email:      email,
		Status:     state.Status,
		Reason:     state.Reason,
		OccurredAt: s.now().UTC(),
	}
	if err := s.events.Publish(ctx, event); err != nil {
		logger.Log.Errorw("failed to publish login event", "event_id", event.EventID, "err", err)
	}
}

// commit must be called with mu held.
func (s *CredentialSubmitter) commit(next models.SubmissionState) delivery {
	s.state = next
	s.seq++

	d := delivery{seq: s.seq, state: next}
	if len(s.observers) > 0 {
		d.subs = make([]subscription, len(s.observers))
		copy(d.subs, s.observers)
	}
	return d
}

// notify hands d to the observers unless a later change was delivered first
// or the form was unmounted in the meantime.
func (s *CredentialSubmitter) notify(d delivery) {
	s.deliverMu.Lock()
	defer s.deliverMu.Unlock()

	if d.seq <= s.delivered {
		return
	}
	s.mu.Lock()
	unmounted := s.unmounted
	s.mu.Unlock()
	if unmounted {
		return
	}

	s.delivered = d.seq
	for _, sub := range d.subs {
		sub.fn(d.state)
	}
}
