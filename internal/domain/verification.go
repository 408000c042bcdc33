package domain

import "time"

// Action types a verification code can be bound to.
const (
	ActionPrayerUpdate          = "prayer_update"
	ActionDeletionRequest       = "deletion_request"
	ActionUpdateDeletionRequest = "update_deletion_request"
	ActionPreferenceChange      = "preference_change"
)

// KnownActions lists the action types a code may be requested for.
var KnownActions = map[string]bool{
	ActionPrayerUpdate:          true,
	ActionDeletionRequest:       true,
	ActionUpdateDeletionRequest: true,
	ActionPreferenceChange:      true,
}

// VerificationCode is a one-time code bound to an email and an opaque action payload.
// PK: code_id. ExpiresAt is a Unix timestamp used as DynamoDB TTL.
type VerificationCode struct {
	CodeID     string    `json:"code_id" dynamodbav:"code_id"`
	Email      string    `json:"email" dynamodbav:"email"`
	ActionType string    `json:"action_type" dynamodbav:"action_type"`
	ActionData string    `json:"action_data" dynamodbav:"action_data"` // raw JSON, echoed verbatim on redeem
	CodeHash   string    `json:"-" dynamodbav:"code_hash"`
	Attempts   int       `json:"attempts" dynamodbav:"attempts"`
	ExpiresAt  int64     `json:"expires_at" dynamodbav:"expires_at"` // TTL (Unix seconds)
	CreatedAt  time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Expired reports whether the code is past its expiry at now.
func (c *VerificationCode) Expired(now time.Time) bool {
	return now.Unix() >= c.ExpiresAt
}

// VerificationEvent is published after a code is redeemed.
type VerificationEvent struct {
	CodeID     string    `json:"code_id"`
	Email      string    `json:"email"`
	ActionType string    `json:"action_type"`
	VerifiedAt time.Time `json:"verified_at"`
}
