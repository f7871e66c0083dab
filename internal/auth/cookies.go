package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/fungi-catalog/internal/config"
)

// Cookies writes and clears the opaque/signed session cookie pair.
type Cookies struct {
	cfg config.CookieConfig
}

// NewCookies builds a cookie writer for the configured names and flags.
func NewCookies(cfg config.CookieConfig) *Cookies {
	return &Cookies{cfg: cfg}
}

// Read returns the per-request session context built from the cookie pair.
func (w *Cookies) Read(c *fiber.Ctx) *SessionContext {
	return NewSessionContext(c.Cookies(w.cfg.OpaqueName), c.Cookies(w.cfg.SignedName))
}

// Set attaches both session cookies, expiring together with the stored records.
func (w *Cookies) Set(c *fiber.Ctx, opaqueToken, signedToken string, expiresAt time.Time) {
	maxAge := int(time.Until(expiresAt).Seconds())
	if maxAge < 0 {
		maxAge = 0
	}
	c.Cookie(w.cookie(w.cfg.OpaqueName, opaqueToken, expiresAt, maxAge))
	c.Cookie(w.cookie(w.cfg.SignedName, signedToken, expiresAt, maxAge))
}

// Clear expires both session cookies on the client.
func (w *Cookies) Clear(c *fiber.Ctx) {
	past := time.Unix(0, 0)
	c.Cookie(w.cookie(w.cfg.OpaqueName, "", past, -1))
	c.Cookie(w.cookie(w.cfg.SignedName, "", past, -1))
}

func (w *Cookies) cookie(name, value string, expires time.Time, maxAge int) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   w.cfg.Domain,
		Expires:  expires,
		MaxAge:   maxAge,
		Secure:   w.cfg.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}
