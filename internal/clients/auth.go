package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sbilibin2017/gw-login/internal/jwt"
	"github.com/sbilibin2017/gw-login/internal/logger"
	"github.com/sbilibin2017/gw-login/internal/models"
)

// AuthHTTPClient authenticates credentials against a remote login endpoint.
type AuthHTTPClient struct {
	loginURL string
	client   *http.Client
}

// NewAuthHTTPClient creates a client posting to baseURL + "/login".
func NewAuthHTTPClient(baseURL string, timeout time.Duration) *AuthHTTPClient {
	return &AuthHTTPClient{
		loginURL: strings.TrimRight(baseURL, "/") + "/login",
		client:   &http.Client{Timeout: timeout},
	}
}

// Authenticate posts the credentials and turns the answer into a session.
//
// 401 and 403 map to models.ErrInvalidCredentials, any other non-200 status to
// models.ErrServer and transport failures to models.ErrNetwork.
func (c *AuthHTTPClient) Authenticate(ctx context.Context, email, password string) (*models.Session, error) {
	body, err := json.Marshal(models.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Log.Errorw("auth request failed", "url", c.loginURL, "err", err)
		return nil, fmt.Errorf("%w: %w", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return nil, models.ErrInvalidCredentials
	default:
		var errResp models.LoginErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		logger.Log.Errorw("auth service returned error", "status", resp.StatusCode, "error", errResp.Error)
		return nil, fmt.Errorf("%w: status %d", models.ErrServer, resp.StatusCode)
	}

	var loginResp models.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", models.ErrServer, err)
	}
	if loginResp.Token == "" {
		return nil, fmt.Errorf("%w: empty token", models.ErrServer)
	}

	session, err := jwt.Decode(loginResp.Token)
	if err != nil {
		logger.Log.Warnw("auth token is not a JWT, keeping it opaque", "err", err)
		session = &models.Session{Token: loginResp.Token}
	}
	if session.Email == "" {
		session.Email = email
	}
	return session, nil
}
