package domain

// AuthMethod identifies which verifier accepted an admin login.
type AuthMethod string

const (
	AuthMethodLocal     AuthMethod = "local"
	AuthMethodDirectory AuthMethod = "directory"
)

// AdminIdentity describes an authenticated portal administrator. Admins are
// not stored server side; the identity travels in the signed cookie.
type AdminIdentity struct {
	Username    string
	DisplayName string
	IsAdmin     bool
	AuthMethod  AuthMethod
}
