package device

import (
	"context"
	"strings"

	"github.com/Anvoria/walletauth/internal/apperr"
	"github.com/Anvoria/walletauth/internal/database"
	"github.com/Anvoria/walletauth/internal/domain/auth"
	"github.com/Anvoria/walletauth/internal/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// AddDeviceRequest is the body of an add device request
type AddDeviceRequest struct {
	DeviceID  string `json:"device_id"`
	DeviceOS  string `json:"device_os"`
	PublicKey string `json:"public_key"`
}

// ConfirmDeviceRequest is the body of a confirmation submitted by the client
type ConfirmDeviceRequest struct {
	Token string `json:"token"`
}

// Handler serves the device registration endpoints
type Handler struct {
	trust       *TrustService
	devices     Repository
	exec        database.Executor
	redirectURL string
}

// NewHandler creates a device handler. redirectURL is where confirmation links land.
func NewHandler(trust *TrustService, devices Repository, exec database.Executor, redirectURL string) *Handler {
	return &Handler{trust: trust, devices: devices, exec: exec, redirectURL: redirectURL}
}

// AddDevice starts trusting a new device for the caller
func (h *Handler) AddDevice(c *fiber.Ctx) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperr.Unauthorized("missing principal")
	}

	var req AddDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.WrapAs(apperr.KindBadRequest, err, "device.AddDevice")
	}
	if err := req.validate(); err != nil {
		return err
	}

	_, err := h.trust.RequestAdd(c.UserContext(), AddRequest{
		DeviceID:  req.DeviceID,
		DeviceOS:  req.DeviceOS,
		PublicKey: req.PublicKey,
		UserID:    principal.UserID,
	})
	if err != nil {
		return err
	}

	return utils.SuccessResponse(c, nil, "Confirmation email sent")
}

// ConfirmAddDevice confirms a pending device with the token from the email
func (h *Handler) ConfirmAddDevice(c *fiber.Ctx) error {
	var req ConfirmDeviceRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.WrapAs(apperr.KindBadRequest, err, "device.ConfirmAddDevice")
	}

	tokenID, err := uuid.Parse(req.Token)
	if err != nil {
		return apperr.Invalid("token", "invalid", "token is not a valid id")
	}

	if err := h.trust.Confirm(c.UserContext(), tokenID); err != nil {
		return err
	}

	return utils.SuccessResponse(c, nil, "Device added")
}

// ConfirmFromLink confirms a pending device from the emailed link and redirects the browser
func (h *Handler) ConfirmFromLink(c *fiber.Ctx) error {
	tokenID, err := uuid.Parse(c.Params("token"))
	if err != nil {
		return apperr.NotFound("malformed device token")
	}

	if err := h.trust.Confirm(c.UserContext(), tokenID); err != nil {
		return err
	}

	return c.Redirect(h.redirectURL, fiber.StatusFound)
}

// List returns the trusted devices of the caller
func (h *Handler) List(c *fiber.Ctx) error {
	principal := auth.GetPrincipal(c)
	if principal == nil {
		return apperr.Unauthorized("missing principal")
	}

	var devices []Device
	err := h.exec.Execute(c.UserContext(), func(ctx context.Context) error {
		var err error
		devices, err = h.devices.ListByUser(ctx, principal.UserID)
		return err
	})
	if err != nil {
		return apperr.Wrap(err, "device.List", "user_id", principal.UserID)
	}

	return utils.SuccessResponse(c, devices, "")
}

func (r *AddDeviceRequest) validate() error {
	r.DeviceID = strings.TrimSpace(r.DeviceID)
	r.DeviceOS = strings.TrimSpace(r.DeviceOS)
	r.PublicKey = strings.ToLower(strings.TrimSpace(r.PublicKey))

	fields := apperr.Fields{}
	if r.DeviceID == "" {
		fields.Add("device_id", "required", "device id is required")
	}
	if r.DeviceOS == "" {
		fields.Add("device_os", "required", "device os is required")
	}
	if r.PublicKey == "" {
		fields.Add("public_key", "required", "public key is required")
	} else if _, err := ParsePublicKey(r.PublicKey); err != nil {
		fields.Add("public_key", "invalid", "public key is not a valid secp256k1 key")
	}

	if len(fields) > 0 {
		return apperr.InvalidFields(fields)
	}
	return nil
}
