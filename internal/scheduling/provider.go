package scheduling

// Provider is an immutable snapshot of a barber profile.
type Provider struct {
	ID string `json:"id"`
	// SessionUserID keys availability queries and booking requests.
	SessionUserID string `json:"session_user_id"`
	Name          string `json:"name"`
	Email         string `json:"email,omitempty"`
	AvatarRef     string `json:"avatar_ref,omitempty"`
}

// User is the signed-in client as exposed by the session.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	AvatarRef string `json:"avatar_ref,omitempty"`
}
