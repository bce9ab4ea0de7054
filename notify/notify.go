// Package notify delivers in-app notifications between users. A
// notification carries a typed JSON payload and stays pending until its
// receiver processes it.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wattshare/wattshare-go/database"
	"github.com/wattshare/wattshare-go/domain"
)

const TypeJoinRequest = "community-join-request"

// JoinRequestPayload is the body of a community join request: which user
// asks to bring which plants into which community.
type JoinRequestPayload struct {
	CommunityID string   `json:"communityId"`
	UserID      string   `json:"userId"`
	PowerPlants []string `json:"powerPlants"`
	Message     string   `json:"message,omitempty"`
}

type Notification struct {
	ID         string          `json:"id"`
	ReceiverID string          `json:"receiverId"`
	SenderID   string          `json:"senderId"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	Processed  bool            `json:"processed"`
	Created    time.Time       `json:"created"`
}

type Service struct {
	db     *database.Database
	logger *slog.Logger
}

func NewService(db *database.Database) *Service {
	return &Service{
		db:     db,
		logger: slog.Default().With("module", "notify"),
	}
}

func (s *Service) Send(ctx context.Context, senderID, receiverID, notificationType string, payload any) (Notification, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Notification{}, fmt.Errorf("encoding notification payload: %w", err)
	}

	row := database.NotificationRow{
		ID:         uuid.NewString(),
		ReceiverID: receiverID,
		SenderID:   senderID,
		Type:       notificationType,
		Data:       data,
		Created:    time.Now().UTC(),
	}
	if err := s.db.InsertNotification(ctx, row); err != nil {
		return Notification{}, err
	}

	s.logger.Info("notification sent",
		slog.String("notificationId", row.ID),
		slog.String("type", notificationType),
		slog.String("receiverId", receiverID))
	return fromRow(row), nil
}

// Get returns a notification only to its receiver. Anyone else gets an
// authorization error, a pending request must not leak to its sender.
func (s *Service) Get(ctx context.Context, userID, notificationID string) (Notification, error) {
	row, err := s.db.GetNotification(ctx, notificationID)
	if err != nil {
		if database.IsNoRows(err) {
			return Notification{}, domain.NotFound("notification not found")
		}
		return Notification{}, err
	}
	if row.ReceiverID != userID {
		return Notification{}, domain.Unauthorized("notification can only be processed by its receiver")
	}
	return fromRow(row), nil
}

// Process marks a pending notification as handled. Only the receiver may
// process it, and processing twice is rejected.
func (s *Service) Process(ctx context.Context, userID, notificationID string) (Notification, error) {
	n, err := s.Get(ctx, userID, notificationID)
	if err != nil {
		return Notification{}, err
	}
	if n.Processed {
		return Notification{}, domain.Conflict("notification has already been processed")
	}
	if err := s.db.MarkNotificationProcessed(ctx, notificationID); err != nil {
		return Notification{}, err
	}
	n.Processed = true
	return n, nil
}

func (s *Service) List(ctx context.Context, receiverID string) ([]Notification, error) {
	rows, err := s.db.GetNotificationsByReceiver(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	notifications := make([]Notification, 0, len(rows))
	for _, row := range rows {
		notifications = append(notifications, fromRow(row))
	}
	return notifications, nil
}

func fromRow(row database.NotificationRow) Notification {
	return Notification{
		ID:         row.ID,
		ReceiverID: row.ReceiverID,
		SenderID:   row.SenderID,
		Type:       row.Type,
		Payload:    json.RawMessage(row.Data),
		Processed:  row.Processed,
		Created:    row.Created,
	}
}
