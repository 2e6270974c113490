package domain

// LocalSubject is the subject assigned to every request when authentication is disabled.
const LocalSubject SubjectID = "local-user"

// Identity is the authenticated caller of a single request.
//
// It is built by the auth middleware and never persisted.
type Identity struct {
	Subject  SubjectID
	Email    *string
	Username *string
	// Groups is nil when the token carried no usable groups claim.
	Groups []string
	// Claims holds every verified token claim.
	Claims map[string]any
}

// LocalIdentity returns the placeholder identity used when authentication is disabled.
func LocalIdentity() Identity {
	username := "local"
	return Identity{
		Subject:  LocalSubject,
		Username: &username,
		Claims:   map[string]any{},
	}
}

// HasAnyGroup reports whether the identity belongs to at least one of allowed.
// Matching is exact: no case folding and no wildcards.
func (i Identity) HasAnyGroup(allowed ...string) bool {
	for _, a := range allowed {
		for _, g := range i.Groups {
			if g == a {
				return true
			}
		}
	}
	return false
}
