package domain

// DispatchTarget addresses one recipient of an outbound message: either an
// existing thread by ID or a user handle for which a conversation is
// resolved on demand. Exactly one field is set.
type DispatchTarget struct {
	ThreadID string `json:"thread_id,omitempty"`
	Username string `json:"username,omitempty"`
}

// String returns the target's identifier for logs and reports.
func (t DispatchTarget) String() string {
	if t.ThreadID != "" {
		return t.ThreadID
	}
	return "@" + t.Username
}

// IsZero reports whether the target addresses nothing.
func (t DispatchTarget) IsZero() bool {
	return t.ThreadID == "" && t.Username == ""
}

// DispatchOutcome records one delivery attempt inside a bulk operation.
type DispatchOutcome struct {
	Target  string `json:"target"`
	ItemID  string `json:"item_id,omitempty"`
	Error   string `json:"error,omitempty"`
	Success bool   `json:"success"`
}

// SendReport aggregates per-target outcomes of a multi-thread send.
type SendReport struct {
	Success []string          `json:"success"`
	Failed  []DispatchOutcome `json:"failed"`
}

// ShareReport aggregates per-(item,target) outcomes of a content share.
// Attempts always equals len(Success)+len(Failed).
type ShareReport struct {
	OperationID string            `json:"operation_id"`
	Attempts    int               `json:"attempts"`
	Success     []DispatchOutcome `json:"success"`
	Failed      []DispatchOutcome `json:"failed"`
}
