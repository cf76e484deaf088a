package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/sbilibin2017/gw-login/internal/models"
	"github.com/sbilibin2017/gw-login/internal/repositories"
	"github.com/sbilibin2017/gw-login/internal/submitter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginAPIHandler(t *testing.T) {
	session := newTestSession()

	tests := []struct {
		name         string
		inputBody    interface{}
		mockSetup    func(m *submitter.MockAuthenticator)
		expectedCode int
		expectedBody interface{}
	}{
		{
			name:      "success",
			inputBody: models.LoginRequest{Email: "a@b.com", Password: "secret"},
			mockSetup: func(m *submitter.MockAuthenticator) {
				m.EXPECT().Authenticate(gomock.Any(), "a@b.com", "secret").Return(session, nil)
			},
			expectedCode: http.StatusOK,
			expectedBody: &models.LoginResponse{Token: session.Token},
		},
		{
			name:         "invalid JSON",
			inputBody:    "{invalid json}",
			mockSetup:    func(m *submitter.MockAuthenticator) {},
			expectedCode: http.StatusBadRequest,
			expectedBody: &models.LoginErrorResponse{Error: "invalid request body"},
		},
		{
			name:         "validation failure never reaches the authenticator",
			inputBody:    models.LoginRequest{Email: "not-an-email", Password: "x"},
			mockSetup:    func(m *submitter.MockAuthenticator) {},
			expectedCode: http.StatusUnprocessableEntity,
			expectedBody: func() *models.LoginErrorResponse {
				st := models.FailedState(models.ReasonValidation, map[string]string{
					models.FieldEmail: "Email must contain @",
				})
				return &models.LoginErrorResponse{Error: st.Message, State: &st}
			}(),
		},
		{
			name:      "wrong credentials",
			inputBody: models.LoginRequest{Email: "a@b.com", Password: "wrong"},
			mockSetup: func(m *submitter.MockAuthenticator) {
				m.EXPECT().Authenticate(gomock.Any(), "a@b.com", "wrong").Return(nil, models.ErrInvalidCredentials)
			},
			expectedCode: http.StatusUnauthorized,
			expectedBody: func() *models.LoginErrorResponse {
				st := models.FailedState(models.ReasonInvalidCredentials, nil)
				return &models.LoginErrorResponse{Error: st.Message, State: &st}
			}(),
		},
		{
			name:      "internal error",
			inputBody: models.LoginRequest{Email: "a@b.com", Password: "secret"},
			mockSetup: func(m *submitter.MockAuthenticator) {
				m.EXPECT().Authenticate(gomock.Any(), "a@b.com", "secret").Return(nil, errors.New("boom"))
			},
			expectedCode: http.StatusInternalServerError,
			expectedBody: func() *models.LoginErrorResponse {
				st := models.FailedState(models.ReasonUnexpected, nil)
				return &models.LoginErrorResponse{Error: st.Message, State: &st}
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			mockAuth := submitter.NewMockAuthenticator(ctrl)
			tt.mockSetup(mockAuth)
			sessions := repositories.NewSessionMemoryRepository()

			var bodyBytes []byte
			switch v := tt.inputBody.(type) {
			case string:
				bodyBytes = []byte(v)
			default:
				bodyBytes, _ = json.Marshal(v)
			}

			req := httptest.NewRequest(http.MethodPost, "/api/v1/login", bytes.NewReader(bodyBytes))
			w := httptest.NewRecorder()

			handler := NewLoginAPIHandler(FormDeps{Auth: mockAuth, Sessions: sessions})
			handler.ServeHTTP(w, req)

			assert.Equal(t, tt.expectedCode, w.Code)

			var respBody interface{}
			switch tt.expectedCode {
			case http.StatusOK:
				respBody = &models.LoginResponse{}
			default:
				respBody = &models.LoginErrorResponse{}
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), respBody))
			assert.Equal(t, tt.expectedBody, respBody)

			if tt.expectedCode == http.StatusOK {
				stored, err := sessions.Get(context.Background(), session.Token)
				require.NoError(t, err)
				assert.NotNil(t, stored)
			}
		})
	}
}
