package notify

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmltpl "html/template"
	"strings"
	texttpl "text/template"
	"time"

	"github.com/google/uuid"
)

//go:embed templates/*
var templateFS embed.FS

const addDeviceSubject = "Confirm your new device"

// AddDeviceVars are the values rendered into the confirmation email
type AddDeviceVars struct {
	DeviceID string
	Link     string
	TTL      string
}

// DeviceNotifier renders and sends device confirmation emails
type DeviceNotifier struct {
	sender     Sender
	confirmURL string
	ttl        time.Duration
	html       *htmltpl.Template
	text       *texttpl.Template
}

// NewDeviceNotifier creates a notifier linking to confirmURL/<token>
func NewDeviceNotifier(sender Sender, confirmURL string, ttl time.Duration) (*DeviceNotifier, error) {
	html, err := htmltpl.ParseFS(templateFS, "templates/add_device.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse html template: %w", err)
	}
	text, err := texttpl.ParseFS(templateFS, "templates/add_device.txt")
	if err != nil {
		return nil, fmt.Errorf("failed to parse text template: %w", err)
	}

	return &DeviceNotifier{
		sender:     sender,
		confirmURL: strings.TrimRight(confirmURL, "/"),
		ttl:        ttl,
		html:       html,
		text:       text,
	}, nil
}

// SendAddDevice emails the confirmation link for a pending device
func (n *DeviceNotifier) SendAddDevice(ctx context.Context, email string, tokenID uuid.UUID, deviceID string) error {
	vars := AddDeviceVars{
		DeviceID: deviceID,
		Link:     n.confirmURL + "/" + tokenID.String(),
		TTL:      n.ttl.String(),
	}

	var html, text bytes.Buffer
	if err := n.html.Execute(&html, vars); err != nil {
		return fmt.Errorf("failed to render html email: %w", err)
	}
	if err := n.text.Execute(&text, vars); err != nil {
		return fmt.Errorf("failed to render text email: %w", err)
	}

	return n.sender.Send(ctx, email, addDeviceSubject, html.String(), text.String())
}
