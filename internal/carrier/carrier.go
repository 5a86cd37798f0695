// Package carrier moves tokens between the service and the browser.
package carrier

import (
	"net/http"
	"time"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"
)

// Carrier reads presented tokens from a request and writes issued tokens
// to a response. An empty string means the token was not presented.
type Carrier interface {
	AccessToken(r *http.Request) string
	RefreshToken(r *http.Request) string
	SetTokens(w http.ResponseWriter, access, refresh string)
	Clear(w http.ResponseWriter)
}

// CookieCarrier stores both tokens in HttpOnly, SameSite=Strict cookies
// scoped to Domain. Each cookie lives exactly as long as its token.
type CookieCarrier struct {
	Domain     string
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

var _ Carrier = (*CookieCarrier)(nil)

func (cc *CookieCarrier) AccessToken(r *http.Request) string {
	return cookieValue(r, AccessCookie)
}

func (cc *CookieCarrier) RefreshToken(r *http.Request) string {
	return cookieValue(r, RefreshCookie)
}

func (cc *CookieCarrier) SetTokens(w http.ResponseWriter, access, refresh string) {
	http.SetCookie(w, cc.cookie(AccessCookie, access, cc.AccessTTL))
	http.SetCookie(w, cc.cookie(RefreshCookie, refresh, cc.RefreshTTL))
}

// Clear expires both cookies immediately.
func (cc *CookieCarrier) Clear(w http.ResponseWriter) {
	for _, name := range []string{AccessCookie, RefreshCookie} {
		c := cc.cookie(name, "", 0)
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0)
		http.SetCookie(w, c)
	}
}

func (cc *CookieCarrier) cookie(name, value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Domain:   cc.Domain,
		MaxAge:   int(ttl / time.Second),
		Secure:   cc.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	}
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
