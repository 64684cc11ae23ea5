package domain

import "time"

// Notification is an in-app message for one user. Partitioned by UserID.
type Notification struct {
	BaseEntity
	UserID    string               `json:"userId"`
	Type      NotificationType     `json:"type"`
	Title     string               `json:"title"`
	Message   string               `json:"message"`
	Icon      string               `json:"icon,omitempty"`
	Priority  NotificationPriority `json:"priority"`
	ActionURL string               `json:"actionUrl,omitempty"`
	IsRead    bool                 `json:"isRead"`
	ReadAt    *time.Time           `json:"readAt,omitempty"`
	ExpiresAt *time.Time           `json:"expiresAt,omitempty"`
	Metadata  map[string]any       `json:"metadata,omitempty"`
}

func (n Notification) PartitionKey() string { return n.UserID }

// IsExpired reports whether n has an expiry at or before now.
func (n Notification) IsExpired(now time.Time) bool {
	return n.ExpiresAt != nil && !now.Before(*n.ExpiresAt)
}

// MarkRead flags n as read at now. It is a no-op for already read
// notifications.
func (n *Notification) MarkRead(now time.Time) {
	if n.IsRead {
		return
	}
	n.IsRead = true
	t := now.UTC()
	n.ReadAt = &t
}
