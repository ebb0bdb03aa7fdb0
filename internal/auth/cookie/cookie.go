// Package cookie reads and writes the signed, encrypted portal cookie.
//
// The cookie is advisory: it carries a customer snapshot for rendering and
// the opaque session token. The session row in the database is the sole
// authority on whether the bearer is still signed in.
package cookie

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gorilla/securecookie"
	"github.com/traversoft/customer-portal/internal/config"
)

// Name is the cookie the portal issues.
const Name = "portal_session"

// CustomerSnapshot is the customer profile embedded in the cookie. It may be
// stale; the identity resolver reloads the record by ID on every request.
type CustomerSnapshot struct {
	ID          snowflake.ID
	FirstName   string
	LastName    string
	Email       string
	ERPAccounts string
}

// Claims is everything the portal stores client side.
type Claims struct {
	Customer     *CustomerSnapshot
	SessionToken string

	// Admin identity lives only in the cookie; there is no admin table.
	// AdminAuthMethod records which verifier accepted the login.
	AdminUsername   string
	AdminName       string
	AdminAuthMethod string
	IsAdmin         bool

	// NextURL holds the page a guard bounced the visitor away from.
	NextURL string
	// Notice is a one-shot message shown on the next page render.
	Notice string
}

func (cl Claims) Empty() bool {
	return cl == Claims{}
}

type Codec struct {
	sc     *securecookie.SecureCookie
	secure bool
}

func New(cfg config.Config) *Codec {
	var blockKey []byte
	if cfg.CookieBlockKey != "" {
		blockKey = []byte(cfg.CookieBlockKey)
	}
	return &Codec{
		sc:     securecookie.New([]byte(cfg.CookieHashKey), blockKey),
		secure: cfg.CookieSecure,
	}
}

// Read decodes the portal cookie. A missing, expired or tampered cookie
// yields zero Claims, never an error: the visitor is simply anonymous.
func (c *Codec) Read(r *http.Request) Claims {
	raw, err := r.Cookie(Name)
	if err != nil {
		return Claims{}
	}
	var claims Claims
	if err := c.sc.Decode(Name, raw.Value, &claims); err != nil {
		return Claims{}
	}
	return claims
}

func (c *Codec) Write(w http.ResponseWriter, claims Claims) error {
	encoded, err := c.sc.Encode(Name, claims)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    encoded,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
