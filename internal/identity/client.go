// Package identity talks to the upstream service that owns accounts and credentials.
package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/gofiber/fiber/v2"
)

// NewUser is the signup payload forwarded upstream
type NewUser struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// User is an account as returned by the identity service
type User struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Client is the identity service API used by this service
type Client interface {
	IssueToken(ctx context.Context, email, password string) (string, error)
	RefreshToken(ctx context.Context, token string) (string, error)
	CreateUser(ctx context.Context, u NewUser) (*User, error)
}

type tokenResponse struct {
	Token string `json:"token"`
}

// HTTPClient calls the identity service over HTTP
type HTTPClient struct {
	baseURL string
	timeout time.Duration
}

// NewHTTPClient creates an identity client rooted at baseURL
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{baseURL: strings.TrimRight(baseURL, "/"), timeout: timeout}
}

// IssueToken exchanges credentials for a session token
func (c *HTTPClient) IssueToken(ctx context.Context, email, password string) (string, error) {
	var out tokenResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.post(ctx, "/v1/jwt/email", "", body, &out); err != nil {
		return "", apperr.Wrap(err, "identity.IssueToken", "email", email)
	}
	return out.Token, nil
}

// RefreshToken trades a live session token for a fresh one
func (c *HTTPClient) RefreshToken(ctx context.Context, token string) (string, error) {
	var out tokenResponse
	if err := c.post(ctx, "/v1/jwt/refresh", token, nil, &out); err != nil {
		return "", apperr.Wrap(err, "identity.RefreshToken")
	}
	return out.Token, nil
}

// CreateUser registers a new account upstream
func (c *HTTPClient) CreateUser(ctx context.Context, u NewUser) (*User, error) {
	var out User
	if err := c.post(ctx, "/v1/users", "", u, &out); err != nil {
		return nil, apperr.Wrap(err, "identity.CreateUser", "email", u.Email)
	}
	return &out, nil
}

func (c *HTTPClient) post(ctx context.Context, path, bearer string, body, out any) error {
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	agent := fiber.Post(c.baseURL + path).Timeout(timeout)
	if bearer != "" {
		agent.Set(fiber.HeaderAuthorization, "Bearer "+bearer)
	}
	if body != nil {
		agent.JSON(body)
	}

	if err := agent.Parse(); err != nil {
		return fmt.Errorf("failed to build identity request: %w", err)
	}

	status, data, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("identity request failed: %w", errors.Join(errs...))
	}

	if status < 200 || status >= 300 {
		return statusError(status, data)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode identity response: %w", err)
	}
	return nil
}

func statusError(status int, body []byte) error {
	switch status {
	case fiber.StatusBadRequest:
		return apperr.BadRequest("identity rejected request")
	case fiber.StatusUnauthorized:
		return apperr.Unauthorized("identity rejected credentials")
	case fiber.StatusNotFound:
		return apperr.NotFound("identity resource not found")
	case fiber.StatusUnprocessableEntity:
		var fields apperr.Fields
		if err := json.Unmarshal(body, &fields); err == nil && len(fields) > 0 {
			return apperr.InvalidFields(fields)
		}
		return apperr.Invalid("body", "invalid", "identity rejected input")
	default:
		return apperr.Internal(fmt.Sprintf("identity responded with status %d", status))
	}
}
