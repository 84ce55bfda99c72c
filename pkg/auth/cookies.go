package auth

import "net/http"

const (
	// AccessTokenCookie names the HTTP-only authorization cookie.
	AccessTokenCookie = "access_token"
	// IDTokenCookie names the script-readable identity cookie.
	IDTokenCookie = "id_token"

	// apiCookiePath scopes the access token to the API surface only.
	apiCookiePath = "/api"
)

// SessionCookies holds the raw token values extracted from a request.
// Either field may be empty; callers decide whether absence matters.
type SessionCookies struct {
	AccessToken string
	IDToken     string
}

// SetSessionCookies attaches both session cookies to the response. The access
// token is HTTP-only and path-scoped to the API; the identity token omits
// HTTP-only so client code can read profile claims. Both carry the token TTL.
func SetSessionCookies(w http.ResponseWriter, accessToken, idToken string) {
	maxAge := int(TokenTTL.Seconds())

	http.SetCookie(w, &http.Cookie{
		Name:     AccessTokenCookie,
		Value:    accessToken,
		Path:     apiCookiePath,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
	http.SetCookie(w, &http.Cookie{
		Name:     IDTokenCookie,
		Value:    idToken,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionFromRequest extracts whichever session cookies the request carries.
func SessionFromRequest(r *http.Request) SessionCookies {
	var session SessionCookies
	if c, err := r.Cookie(AccessTokenCookie); err == nil {
		session.AccessToken = c.Value
	}
	if c, err := r.Cookie(IDTokenCookie); err == nil {
		session.IDToken = c.Value
	}
	return session
}
