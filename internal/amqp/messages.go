package amqp

import (
	"encoding/json"
	"time"
)

// AlertNotification carries just enough to deliver a notification; consumers
// fetch the full alert from the database when they need more.
type AlertNotification struct {
	AlertID   int64     `json:"alert_id"`
	UserID    int64     `json:"user_id"`
	AlertType string    `json:"alert_type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func NewAlertNotification(alertID, userID int64, alertType, message string) *AlertNotification {
	return &AlertNotification{
		AlertID:   alertID,
		UserID:    userID,
		AlertType: alertType,
		Message:   message,
		Timestamp: time.Now(),
	}
}

func (m *AlertNotification) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func AlertNotificationFromJSON(data []byte) (*AlertNotification, error) {
	var msg AlertNotification
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
