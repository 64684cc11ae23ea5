package domain

// Activity is one entry of the community feed. Partitioned by Date so a day's
// feed lives in one partition.
type Activity struct {
	BaseEntity
	UserID       string         `json:"userId"`
	Date         string         `json:"date"` // yyyy-MM-dd
	ActivityType ActivityType   `json:"activityType"`
	Description  string         `json:"description"`
	Metadata     map[string]any `json:"metadata,omitempty"`
	Points       int            `json:"points"`
}

func (a Activity) PartitionKey() string { return a.Date }
