package kernel

// Vector is a dense embedding as stored (32-bit components).
type Vector []float32

// Dim returns the number of components.
func (v Vector) Dim() int { return len(v) }

// IsZero reports whether the vector is empty or every component is zero.
func (v Vector) IsZero() bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// Fingerprint is the hex SHA-256 of a normalized source URL.
type Fingerprint string

func (f Fingerprint) String() string { return string(f) }

// ProfileVersion identifies a revision of a user's profile.
type ProfileVersion int64
