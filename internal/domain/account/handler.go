package account

import (
	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/domain/auth"
	"github.com/Anvoria/walletauth/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// Handler serves the account endpoints
type Handler struct {
	service *Service
}

// NewHandler creates a new account handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// SignUp handles account creation
func (h *Handler) SignUp(c *fiber.Ctx) error {
	var req SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.WrapAs(apperr.KindBadRequest, err, "account.SignUp")
	}

	u, err := h.service.SignUp(c.UserContext(), req)
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, u, "User created", fiber.StatusCreated)
}

// Me returns the caller's profile
func (h *Handler) Me(c *fiber.Ctx) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperr.Unauthorized("missing principal")
	}

	profile, err := h.service.Me(c.UserContext(), principal.UserID)
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, profile, "")
}
