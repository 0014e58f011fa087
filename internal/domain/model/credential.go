package model

// Credential is the opaque per-session token handed to every backend call.
// It is never parsed.
type Credential struct {
	token string
}

// NewCredential wraps token.
func NewCredential(token string) Credential {
	return Credential{token: token}
}

// Token returns the raw token for use in a request header.
func (c Credential) Token() string { return c.token }

// Empty reports whether no token was supplied.
func (c Credential) Empty() bool { return c.token == "" }

// String redacts the token so it never reaches logs.
func (c Credential) String() string {
	if c.token == "" {
		return "credential(none)"
	}
	return "credential(***)"
}
