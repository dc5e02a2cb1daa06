package models

import "time"

// Task type names shared by the API, worker and scheduler
const (
	TaskNotificationDispatch = "notification:dispatch"
	TaskCleanupSweep         = "cleanup:sweep"
)

// NotificationPayload is what a device receives when content is created
type NotificationPayload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Link  string `json:"link"`
}

// RegisterTokenRequest is the body of POST /fcm-tokens
type RegisterTokenRequest struct {
	Token string `json:"token"`
}

// DeviceToken is a registered push token
type DeviceToken struct {
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
}
