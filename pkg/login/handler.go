// Package login orchestrates the OAuth sign-in flow: redirect to the
// provider when no code is present, complete the login when one is.
package login

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/parleychat/sharegate/pkg/auth"
	"github.com/parleychat/sharegate/pkg/identity"
	"github.com/parleychat/sharegate/pkg/observability"
)

// ErrorRedirectPath is where failed logins land, flagged for the client.
const ErrorRedirectPath = "/?error=login"

// Handler serves the login endpoint.
type Handler struct {
	provider *identity.Client
	secret   []byte
	metrics  *observability.Metrics
}

// NewHandler creates the login handler.
func NewHandler(provider *identity.Client, secret []byte, metrics *observability.Metrics) *Handler {
	return &Handler{
		provider: provider,
		secret:   secret,
		metrics:  metrics,
	}
}

// RegisterRoutes registers the login route.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/login", h.handleLogin).Methods(http.MethodGet)
}

// handleLogin either redirects to the provider (no code present) or
// completes the login (code present). It always ends in a redirect and
// never renders a body.
func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectToProvider(w, r)
		return
	}
	h.completeLogin(w, r, code)
}

// redirectToProvider sends the client to the provider's authorization
// endpoint. A chat id, when supplied, rides along as opaque state so the
// provider echoes it back on callback.
func (h *Handler) redirectToProvider(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("chat_id")
	http.Redirect(w, r, h.provider.AuthCodeURL(state), http.StatusFound)
}

// completeLogin exchanges the code for a profile, mints both session tokens
// and redirects with cookies attached. Any failure redirects to the error
// landing page with zero cookies set.
func (h *Handler) completeLogin(w http.ResponseWriter, r *http.Request, code string) {
	ctx := r.Context()
	logger := observability.FromContext(ctx)

	providerToken, err := h.provider.ExchangeCode(ctx, code)
	if err != nil {
		logger.WithError(err).Warn("code exchange failed")
		h.failLogin(w, r)
		return
	}

	profile, err := h.provider.FetchProfile(ctx, providerToken)
	if err != nil {
		logger.WithError(err).Warn("profile fetch failed")
		h.failLogin(w, r)
		return
	}

	idToken, err := auth.CreateToken(profile.Username, map[string]string{
		"name":       profile.Name,
		"avatar_url": profile.AvatarURL,
		"email":      profile.Email,
	}, h.secret)
	if err != nil {
		logger.WithError(err).Error("mint identity token failed")
		h.failLogin(w, r)
		return
	}

	accessToken, err := auth.CreateToken(profile.Username, map[string]string{
		auth.RoleClaim: auth.RoleAPI,
	}, h.secret)
	if err != nil {
		logger.WithError(err).Error("mint access token failed")
		h.failLogin(w, r)
		return
	}

	auth.SetSessionCookies(w, accessToken, idToken)
	h.metrics.LoginsTotal.WithLabelValues("success").Inc()
	logger.WithField("username", profile.Username).Info("login completed")

	// The provider round-trips the chat id through state untouched.
	target := "/"
	if chatID := r.URL.Query().Get("state"); chatID != "" {
		target = "/c/" + chatID
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) failLogin(w http.ResponseWriter, r *http.Request) {
	h.metrics.LoginsTotal.WithLabelValues("failure").Inc()
	http.Redirect(w, r, ErrorRedirectPath, http.StatusFound)
}
