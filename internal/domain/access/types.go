package access

type AccessState string

const (
	AccessTrial  AccessState = "trial"
	AccessFull   AccessState = "full"
	AccessGrace  AccessState = "grace"
	AccessFree   AccessState = "free"
	AccessLocked AccessState = "locked"
)

// HasPaidAccess is true while paid (or trial) benefits apply.
func (s AccessState) HasPaidAccess() bool {
	return s == AccessTrial || s == AccessFull || s == AccessGrace
}

type Capability string

const (
	CapAdmin Capability = "admin"
)

// Identity is the verified caller, produced once by the identity resolver.
type Identity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role,omitempty"`
}
