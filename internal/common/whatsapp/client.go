// internal/common/whatsapp/client.go
package whatsapp

import (
	"context"
	"errors"
	"fmt"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
)

// ErrNotPaired is returned when the device store has no logged-in session.
// Pairing is done out of band by scanning the QR code once.
var ErrNotPaired = errors.New("whatsapp device is not paired")

// Sender is the subset of *whatsmeow.Client the transport needs.
type Sender interface {
	SendMessage(ctx context.Context, to types.JID, message *waE2E.Message, extra ...whatsmeow.SendRequestExtra) (whatsmeow.SendResponse, error)
	IsConnected() bool
}

// Transport sends reminders as WhatsApp text messages.
type Transport struct {
	client Sender
}

// Connect opens the device store, loads the paired device and connects.
func Connect(ctx context.Context, dialect, dsn string) (*whatsmeow.Client, error) {
	container, err := sqlstore.New(ctx, dialect, dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("open whatsapp store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load whatsapp device: %w", err)
	}

	client := whatsmeow.NewClient(device, nil)
	if client.Store.ID == nil {
		return nil, ErrNotPaired
	}
	if err := client.Connect(); err != nil {
		return nil, fmt.Errorf("connect whatsapp: %w", err)
	}
	return client, nil
}

func NewTransport(client Sender) *Transport {
	return &Transport{client: client}
}

func (t *Transport) Name() string {
	return "whatsapp"
}

// Send delivers text to phone, given as digits with country code.
func (t *Transport) Send(ctx context.Context, phone, text string) error {
	if !t.client.IsConnected() {
		return errors.New("whatsapp client is not connected")
	}

	jid := types.NewJID(phone, types.DefaultUserServer)
	msg := &waE2E.Message{
		Conversation: &text,
	}

	if _, err := t.client.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("whatsapp send to %s: %w", jid.User, err)
	}
	return nil
}
