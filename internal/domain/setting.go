package domain

import "time"

// SettingRequireEmailVerification toggles the email verification gate for end users.
const SettingRequireEmailVerification = "require_email_verification"

// KnownSettings lists the admin setting keys the API accepts.
var KnownSettings = map[string]bool{
	SettingRequireEmailVerification: true,
}

// AdminSetting is a single boolean feature flag managed by administrators.
// PK: setting_key.
type AdminSetting struct {
	Key       string    `json:"key" dynamodbav:"setting_key"`
	Value     bool      `json:"value" dynamodbav:"value"`
	UpdatedBy string    `json:"updatedBy,omitempty" dynamodbav:"updated_by"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}
