package data

// AuditEventType defines audit event type constants.
// These constants are used for audit logging in orchestration_audit_logs table.
type AuditEventType string

const (
	// AuditEventCircuitStateChanged is logged on every breaker state transition
	AuditEventCircuitStateChanged AuditEventType = "CIRCUIT_STATE_CHANGED"

	// AuditEventCircuitReset is logged when an operator force-closes a breaker
	AuditEventCircuitReset AuditEventType = "CIRCUIT_RESET"

	// AuditEventContentTransition is logged when a content item changes status
	AuditEventContentTransition AuditEventType = "CONTENT_TRANSITION"

	// AuditEventSilentFailure is logged when a scheduled run is found missing
	AuditEventSilentFailure AuditEventType = "SILENT_FAILURE"
)

// String returns the string representation of AuditEventType
func (e AuditEventType) String() string {
	return string(e)
}
