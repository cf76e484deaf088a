package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/sbilibin2017/gw-login/internal/models"
)

// NewLoginAPIHandler returns an HTTP handler for JSON login.
// @Summary User login
// @Description Validate credentials, authenticate them and open a session
// @Tags auth
// @Accept json
// @Produce json
// @Param loginRequest body models.LoginRequest true "Login Request"
// @Success 200 {object} models.LoginResponse "Session token returned"
// @Failure 400 {object} models.LoginErrorResponse "Invalid request body"
// @Failure 401 {object} models.LoginErrorResponse "Invalid email or password"
// @Failure 422 {object} models.LoginErrorResponse "Validation failed"
// @Failure 502 {object} models.LoginErrorResponse "Authentication service unavailable"
// @Failure 500 {object} models.LoginErrorResponse "Internal server error"
// @Router /api/v1/login [post]
func NewLoginAPIHandler(deps FormDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		var req models.LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(models.LoginErrorResponse{
				Error: "invalid request body",
			})
			return
		}

		router := &capturingRouter{}
		form := deps.newForm(deps.Sessions, router)
		defer form.Unmount()

		form.SetEmail(req.Email)
		form.SetPassword(req.Password)

		state, _ := form.Submit(r.Context())
		if state.Status == models.StatusSucceeded && router.session != nil {
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(models.LoginResponse{
				Token: router.session.Token,
			})
			return
		}

		w.WriteHeader(statusFor(state))
		json.NewEncoder(w).Encode(models.LoginErrorResponse{
			Error: state.Message,
			State: &state,
		})
	}
}
