// ABOUTME: Matrix room sink for operator notices
// ABOUTME: Posts subject and body as one text message, ignoring the recipient

package notify

import (
	"context"
	"fmt"

	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/id"
)

// MatrixConfig holds the bot account and target room.
type MatrixConfig struct {
	Homeserver  string
	UserID      string
	AccessToken string
	RoomID      string
}

// MatrixSink posts messages to a single room.
type MatrixSink struct {
	client *mautrix.Client
	room   id.RoomID
}

// NewMatrixSink creates a client for cfg. It does not contact the
// homeserver until the first Send.
func NewMatrixSink(cfg MatrixConfig) (*MatrixSink, error) {
	client, err := mautrix.NewClient(cfg.Homeserver, id.UserID(cfg.UserID), cfg.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("creating matrix client: %w", err)
	}
	return &MatrixSink{client: client, room: id.RoomID(cfg.RoomID)}, nil
}

// Send implements Sink.
func (s *MatrixSink) Send(ctx context.Context, msg Message) error {
	if _, err := s.client.SendText(ctx, s.room, matrixText(msg)); err != nil {
		return fmt.Errorf("matrix send to %s: %w", s.room, err)
	}
	return nil
}

func matrixText(msg Message) string {
	if msg.Subject == "" {
		return msg.Body
	}
	return msg.Subject + "\n\n" + msg.Body
}
