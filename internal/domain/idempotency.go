package domain

import "time"

// IdempotencyRecord remembers the outcome of a completed unsafe request so a
// retry carrying the same Idempotency-Key can be answered without repeating
// its side effects. Records are partitioned by UserID and addressed by a
// deterministic ID derived from (scope, key), so a second insert for the same
// tuple collides on the store's uniqueness check.
type IdempotencyRecord struct {
	BaseEntity
	UserID     string    `json:"userId"`
	Scope      string    `json:"scope"` // route or operation, e.g. "squads.create"
	Key        string    `json:"key"`
	ResourceID string    `json:"resourceId"`
	Status     int       `json:"status"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

func (r IdempotencyRecord) PartitionKey() string { return r.UserID }

// IdempotencyID is the document ID for (scope, key).
func IdempotencyID(scope, key string) string { return scope + ":" + key }
