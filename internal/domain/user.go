package domain

// User is created lazily the first time a verified identity is seen.
// Sub is the external subject and acts as the business key.
type User struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Sub   string `json:"sub"`
}

// Principal is the verified identity attached to a request.
// The zero value is the empty principal: no token, or a token that failed
// verification.
type Principal struct {
	Subject string
	Name    string
	Email   string
}

// IsAuthenticated reports whether the principal carries a verified subject.
func (p Principal) IsAuthenticated() bool {
	return p.Subject != ""
}

// NewUserFromPrincipal builds the user record for a first-seen identity.
func NewUserFromPrincipal(p Principal) *User {
	return &User{
		Name:  p.Name,
		Email: p.Email,
		Sub:   p.Subject,
	}
}
