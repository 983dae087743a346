package types

// UserID is a caller-supplied identity scoping all memory operations
type UserID string

// String returns the string representation of the user ID
func (id UserID) String() string {
	return string(id)
}

// SessionID is a caller-defined grouping key scoping a conversation thread
type SessionID string

// String returns the string representation of the session ID
func (id SessionID) String() string {
	return string(id)
}
