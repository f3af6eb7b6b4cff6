package domain

import "time"

// Audit actions recorded by the services.
const (
	AuditUserRegistered = "user.registered"
	AuditLoginSucceeded = "login.succeeded"
	AuditLoginFailed    = "login.failed"
	AuditRoleChanged    = "user.role_changed"
	AuditUserEnabled    = "user.enabled"
	AuditUserDisabled   = "user.disabled"
)

// AuditEvent is one entry in the security audit trail. Actor is the username
// the event is attributed to; Detail carries free-form context such as the
// new role or the failure reason.
type AuditEvent struct {
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
