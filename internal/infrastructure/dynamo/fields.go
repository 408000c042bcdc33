package dynamo

// DynamoDB attribute names used in key and update expressions across all repos.
// Using constants prevents silent runtime bugs caused by key typos.
const (
	fieldCodeID     = "code_id"
	fieldAttempts   = "attempts"
	fieldSettingKey = "setting_key"
	fieldValue      = "value"
	fieldUpdatedBy  = "updated_by"
	fieldUpdatedAt  = "updated_at"
	fieldExpiresAt  = "expires_at"
)
