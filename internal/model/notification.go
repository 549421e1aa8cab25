package model

import "github.com/google/uuid"

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "EMAIL"
	ChannelSMS   NotificationChannel = "SMS"
	ChannelPush  NotificationChannel = "PUSH"
)

const (
	NotificationBidReceived = "BID_RECEIVED"
	NotificationBidApproved = "BID_APPROVED"
	NotificationBidRejected = "BID_REJECTED"
)

// Notification is an outbound message handed to the dispatcher. Delivery is
// best-effort: the lifecycle engine never inspects the result.
type Notification struct {
	UserID   uuid.UUID
	Type     string
	Title    string
	Content  string
	Data     map[string]string
	Channels []NotificationChannel
}
