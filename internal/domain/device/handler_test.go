package device_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/Anvoria/walletauth/internal/domain/auth"
	"github.com/Anvoria/walletauth/internal/domain/device"
	"github.com/Anvoria/walletauth/internal/utils"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const redirectURL = "https://wallet.example.com/device_added"

func newHandlerApp(f *fixture, userID int64) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorResponse})
	h := device.NewHandler(f.trust, f.store.Devices(), f.store, redirectURL)

	withPrincipal := func(c *fiber.Ctx) error {
		if userID != 0 {
			c.Locals(auth.PrincipalKey, &auth.Principal{UserID: userID, Expiry: epoch.Add(time.Hour)})
		}
		return c.Next()
	}

	app.Post("/add_device", withPrincipal, h.AddDevice)
	app.Post("/confirm_add_device", h.ConfirmAddDevice)
	app.Get("/register_device/:token", h.ConfirmFromLink)
	app.Get("/devices", withPrincipal, h.List)
	app.Get("/protected", withPrincipal, device.RequireChallenge(
		device.NewVerifier(f.store.Users(), f.store.Devices(), f.store, true),
	), func(c *fiber.Ctx) error {
		return c.SendString("ok")
	})
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body any) (int, []byte) {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHandler_AddDevice(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, 7)
	app := newHandlerApp(f, 7)

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)

	status, _ := postJSON(t, app, "/add_device", device.AddDeviceRequest{
		DeviceID:  "D1",
		DeviceOS:  "android",
		PublicKey: device.EncodePublicKey(priv),
	})
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, 1, f.notifier.count())
}

func TestHandler_AddDevice_Validation(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, 7)
	app := newHandlerApp(f, 7)

	status, body := postJSON(t, app, "/add_device", device.AddDeviceRequest{DeviceOS: "ios", PublicKey: "zz"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	var fields map[string][]map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))
	assert.Contains(t, fields, "device_id")
	assert.Contains(t, fields, "public_key")
	assert.Equal(t, 0, f.notifier.count())
}

func TestHandler_AddDevice_MalformedBody(t *testing.T) {
	f := newFixture(t)
	app := newHandlerApp(f, 7)

	req := httptest.NewRequest("POST", "/add_device", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestHandler_AddDevice_NoPrincipal(t *testing.T) {
	f := newFixture(t)
	app := newHandlerApp(f, 0)

	status, _ := postJSON(t, app, "/add_device", device.AddDeviceRequest{DeviceID: "D1"})
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestHandler_ConfirmAddDevice(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, 7)
	app := newHandlerApp(f, 7)

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	token, err := f.trust.RequestAdd(context.Background(), device.AddRequest{
		DeviceID: "D1", DeviceOS: "ios", PublicKey: device.EncodePublicKey(priv), UserID: 7,
	})
	require.NoError(t, err)

	status, _ := postJSON(t, app, "/confirm_add_device", device.ConfirmDeviceRequest{Token: token.ID.String()})
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = postJSON(t, app, "/confirm_add_device", device.ConfirmDeviceRequest{Token: token.ID.String()})
	assert.Equal(t, fiber.StatusOK, status, "confirmation is idempotent")

	status, _ = postJSON(t, app, "/confirm_add_device", device.ConfirmDeviceRequest{Token: uuid.NewString()})
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = postJSON(t, app, "/confirm_add_device", device.ConfirmDeviceRequest{Token: "nope"})
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)
}

func TestHandler_ConfirmFromLink(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, 7)
	app := newHandlerApp(f, 7)

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	token, err := f.trust.RequestAdd(context.Background(), device.AddRequest{
		DeviceID: "D1", DeviceOS: "ios", PublicKey: device.EncodePublicKey(priv), UserID: 7,
	})
	require.NoError(t, err)

	resp, err := app.Test(httptest.NewRequest("GET", "/register_device/"+token.ID.String(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusFound, resp.StatusCode)
	assert.Equal(t, redirectURL, resp.Header.Get("Location"))

	resp, err = app.Test(httptest.NewRequest("GET", "/register_device/"+uuid.NewString(), nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/register_device/not-a-guid", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestHandler_ListAndChallenge(t *testing.T) {
	f := newFixture(t)
	f.addUser(t, 7)
	app := newHandlerApp(f, 7)

	priv, err := secp256k1.GeneratePrivateKey()
	require.NoError(t, err)
	token, err := f.trust.RequestAdd(context.Background(), device.AddRequest{
		DeviceID: "D1", DeviceOS: "ios", PublicKey: device.EncodePublicKey(priv), UserID: 7,
	})
	require.NoError(t, err)
	require.NoError(t, f.trust.Confirm(context.Background(), token.ID))

	resp, err := app.Test(httptest.NewRequest("GET", "/devices", nil))
	require.NoError(t, err)
	var listed struct {
		Data []device.Device `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&listed))
	require.Len(t, listed.Data, 1)
	assert.Equal(t, "D1", listed.Data[0].DeviceID)

	challenge := func(ts int64) int {
		req := httptest.NewRequest("GET", "/protected", nil)
		req.Header.Set(device.HeaderDeviceID, "D1")
		req.Header.Set(device.HeaderTimestamp, strconv.FormatInt(ts, 10))
		req.Header.Set(device.HeaderSignature, device.SignChallenge(priv, ts, "D1"))
		resp, err := app.Test(req)
		require.NoError(t, err)
		return resp.StatusCode
	}

	assert.Equal(t, fiber.StatusOK, challenge(100))
	assert.Equal(t, fiber.StatusUnauthorized, challenge(100), "replayed timestamp")
	assert.Equal(t, fiber.StatusOK, challenge(101))

	resp, err = app.Test(httptest.NewRequest("GET", "/protected", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode, "missing headers")
}
