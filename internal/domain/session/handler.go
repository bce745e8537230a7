package session

import (
	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/domain/auth"
	"github.com/Anvoria/walletauth/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// IssueRequest carries login credentials
type IssueRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TokenResponse carries a session token
type TokenResponse struct {
	Token string `json:"token"`
}

// Handler serves the session endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a new session handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Issue handles login
func (h *Handler) Issue(c *fiber.Ctx) error {
	var req IssueRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.WrapAs(apperr.KindBadRequest, err, "session.Issue")
	}

	token, err := h.service.Issue(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, TokenResponse{Token: token}, "Session created")
}

// Refresh handles token refresh
func (h *Handler) Refresh(c *fiber.Ctx) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperr.Unauthorized("missing principal")
	}

	token, err := h.service.Refresh(c.UserContext(), principal)
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, TokenResponse{Token: token}, "Session refreshed")
}

// Revoke handles logout from every session
func (h *Handler) Revoke(c *fiber.Ctx) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperr.Unauthorized("missing principal")
	}

	if err := h.service.Revoke(c.UserContext(), principal); err != nil {
		return err
	}

	return utils.SuccessResponse(c, nil, "Sessions revoked")
}
