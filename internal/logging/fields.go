package logging

// Canonical field names for structured logging.
const (
	FieldComponent = "component"
	FieldRunID     = "run_id"
	FieldStage     = "stage"
	FieldAttempt   = "attempt"
	FieldBudget    = "budget"

	FieldFile        = "file"
	FieldLocalPath   = "local_path"
	FieldRemotePath  = "remote_path"
	FieldLocalSum    = "local_md5"
	FieldRemoteSum   = "remote_md5"
	FieldDisposition = "disposition"
	FieldEncoder     = "encoder"
	FieldReason      = "reason"
)
