package middlewares

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/sbilibin2017/gw-login/internal/jwt"
	"github.com/sbilibin2017/gw-login/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionMiddleware(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	session := &models.Session{Token: "validtoken", UserID: uuid.New(), Email: "a@b.com"}

	tests := []struct {
		name             string
		path             string
		cookie           string
		header           string
		mockSetup        func(m *MockSessionReader)
		expectedStatus   int
		expectedLocation string
		expectNextCalled bool
	}{
		{
			name:             "NoToken page",
			path:             "/",
			mockSetup:        func(m *MockSessionReader) {},
			expectedStatus:   http.StatusFound,
			expectedLocation: "/login",
		},
		{
			name:           "NoToken api",
			path:           "/api/v1/me",
			mockSetup:      func(m *MockSessionReader) {},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "UnknownSession",
			path:   "/",
			cookie: "sometoken",
			mockSetup: func(m *MockSessionReader) {
				m.EXPECT().Get(gomock.Any(), "sometoken").Return(nil, nil)
			},
			expectedStatus:   http.StatusFound,
			expectedLocation: "/login",
		},
		{
			name:   "StoreError",
			path:   "/api/v1/me",
			header: "Bearer sometoken",
			mockSetup: func(m *MockSessionReader) {
				m.EXPECT().Get(gomock.Any(), "sometoken").Return(nil, errors.New("redis down"))
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:   "ValidCookie",
			path:   "/",
			cookie: "validtoken",
			mockSetup: func(m *MockSessionReader) {
				m.EXPECT().Get(gomock.Any(), "validtoken").Return(session, nil)
			},
			expectedStatus:   http.StatusOK,
			expectNextCalled: true,
		},
		{
			name:   "ValidBearer",
			path:   "/api/v1/me",
			header: "Bearer validtoken",
			mockSetup: func(m *MockSessionReader) {
				m.EXPECT().Get(gomock.Any(), "validtoken").Return(session, nil)
			},
			expectedStatus:   http.StatusOK,
			expectNextCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockReader := NewMockSessionReader(ctrl)
			tt.mockSetup(mockReader)

			nextCalled := false
			nextHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				assert.Equal(t, session, SessionFromContext(r.Context()))
				w.WriteHeader(http.StatusOK)
			})

			handler := SessionMiddleware(mockReader, "gw_session")(nextHandler)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "gw_session", Value: tt.cookie})
			}
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectNextCalled, nextCalled)
			if tt.expectedLocation != "" {
				assert.Equal(t, tt.expectedLocation, rr.Header().Get("Location"))
			}
		})
	}
}

func TestSessionMiddleware_TokenValidator(t *testing.T) {
	session := &models.Session{Token: "signed", UserID: uuid.New(), Email: "a@b.com"}

	tests := []struct {
		name             string
		path             string
		setup            func(v *MockTokenValidator, r *MockSessionReader)
		expectedStatus   int
		expectNextCalled bool
	}{
		{
			name: "RejectedTokenSkipsStore",
			path: "/api/v1/stories/get-story/1",
			setup: func(v *MockTokenValidator, r *MockSessionReader) {
				v.EXPECT().Validate(gomock.Any(), "signed").Return(jwt.ErrInvalidToken)
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "ValidTokenStillNeedsSession",
			path: "/",
			setup: func(v *MockTokenValidator, r *MockSessionReader) {
				v.EXPECT().Validate(gomock.Any(), "signed").Return(nil)
				r.EXPECT().Get(gomock.Any(), "signed").Return(nil, nil)
			},
			expectedStatus: http.StatusFound,
		},
		{
			name: "ValidTokenAndSession",
			path: "/",
			setup: func(v *MockTokenValidator, r *MockSessionReader) {
				gomock.InOrder(
					v.EXPECT().Validate(gomock.Any(), "signed").Return(nil),
					r.EXPECT().Get(gomock.Any(), "signed").Return(session, nil),
				)
			},
			expectedStatus:   http.StatusOK,
			expectNextCalled: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			validator := NewMockTokenValidator(ctrl)
			reader := NewMockSessionReader(ctrl)
			tt.setup(validator, reader)

			nextCalled := false
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			})
			handler := SessionMiddleware(reader, "gw_session", WithTokenValidator(validator))(next)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			req.AddCookie(&http.Cookie{Name: "gw_session", Value: "signed"})
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, tt.expectedStatus, rr.Code)
			assert.Equal(t, tt.expectNextCalled, nextCalled)
		})
	}
}

func TestSessionMiddleware_ExpiredJWT(t *testing.T) {
	ctrl := gomock.NewController(t)
	reader := NewMockSessionReader(ctrl)

	issuer := jwt.New(jwt.WithSecretKey("k"), jwt.WithExpiration(-time.Minute))
	session, err := issuer.Generate(context.Background(), uuid.New(), "a@b.com")
	require.NoError(t, err)

	handler := SessionMiddleware(reader, "gw_session", WithTokenValidator(issuer))(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			t.Fatal("expired token reached the handler")
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/stories/get-list/x", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.JSONEq(t, `{"error":"user not logged in"}`, rr.Body.String())
}

func TestSessionFromContext_Empty(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, SessionFromContext(req.Context()))
}
