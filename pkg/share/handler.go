package share

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/parleychat/sharegate/pkg/auth"
	"github.com/parleychat/sharegate/pkg/httputil"
	"github.com/parleychat/sharegate/pkg/observability"
	"github.com/parleychat/sharegate/pkg/storage"
)

// Handler serves the sharing endpoints.
type Handler struct {
	store   storage.ObjectStore
	secret  []byte
	metrics *observability.Metrics

	// now is the quota clock; tests override it.
	now func() time.Time
}

// NewHandler creates the sharing gateway handler.
func NewHandler(store storage.ObjectStore, secret []byte, metrics *observability.Metrics) *Handler {
	return &Handler{
		store:   store,
		secret:  secret,
		metrics: metrics,
		now:     time.Now,
	}
}

// RegisterRoutes registers the sharing routes. The catch-all prefix route
// turns every malformed share path into a 400 instead of the router's 404.
func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/share/{owner}/{id}", h.handleSave).Methods(http.MethodPut)
	router.HandleFunc("/api/share/{owner}/{id}", h.handleRead).Methods(http.MethodGet)
	router.HandleFunc("/api/share/{owner}/{id}", h.handleDelete).Methods(http.MethodDelete)
	router.PathPrefix("/api/share").HandlerFunc(h.handleBadPath)
}

// handleSave creates or overwrites a shared chat. Checks run in order and
// the first failure returns with nothing written and no cookies touched.
func (h *Handler) handleSave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := mux.Vars(r)["owner"]
	id := mux.Vars(r)["id"]
	logger := observability.FromContext(ctx).WithField("owner", owner).WithField("chat_id", id)

	session := auth.SessionFromRequest(r)
	if session.AccessToken == "" {
		httputil.WriteForbidden(w, "Missing Access Token")
		return
	}
	if session.IDToken == "" {
		httputil.WriteForbidden(w, "Missing ID Token")
		return
	}

	if !isJSONContentType(r.Header.Get("Content-Type")) {
		httputil.WriteBadRequest(w, "Content-Type must be application/json")
		return
	}

	claims, err := auth.VerifyToken(session.AccessToken, h.secret)
	if err != nil {
		httputil.WriteForbidden(w, "Invalid Access Token")
		return
	}
	if claims.Subject != owner {
		httputil.WriteForbidden(w, "Access Token does not match username")
		return
	}
	if claims.Role() != auth.RoleAPI {
		httputil.WriteForbidden(w, "Access Token missing role")
		return
	}

	listing, err := h.store.List(ctx, owner+"/")
	if err != nil {
		h.storageError(w, logger, "list", err)
		return
	}
	quota := ComputeQuota(listing, h.now())
	if quota.ExceedsTotal() {
		h.metrics.QuotaRejectionsTotal.WithLabelValues("total").Inc()
		httputil.WriteForbidden(w, "Too many shared chats")
		return
	}
	if quota.ExceedsDaily() {
		h.metrics.QuotaRejectionsTotal.WithLabelValues("daily").Inc()
		httputil.WriteTooManyRequests(w, "Daily share limit reached")
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		httputil.WriteBadRequest(w, "failed to read request body")
		return
	}

	h.metrics.StorageOperationsTotal.WithLabelValues("put").Inc()
	if err := h.store.Put(ctx, owner+"/"+id, body, "application/json"); err != nil {
		h.storageError(w, logger, "put", err)
		return
	}

	// Sliding refresh: the same tokens go back out with a fresh cookie
	// lifetime. Cookies are only ever rewritten on this success path.
	auth.SetSessionCookies(w, session.AccessToken, session.IDToken)
	h.metrics.SharedChatsWritten.Inc()
	logger.WithField("total", quota.Total+1).Info("shared chat saved")
	httputil.WriteMessage(w, "Shared chat saved")
}

// handleRead serves a shared chat to anyone holding the key. No auth, and
// the response never touches cookies.
func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := mux.Vars(r)["owner"]
	id := mux.Vars(r)["id"]

	h.metrics.StorageOperationsTotal.WithLabelValues("get").Inc()
	obj, err := h.store.Get(ctx, owner+"/"+id)
	if errors.Is(err, storage.ErrObjectNotFound) {
		httputil.WriteNotFound(w, "Shared chat not found")
		return
	}
	if err != nil {
		h.storageError(w, observability.FromContext(ctx).WithField("owner", owner), "get", err)
		return
	}

	contentType := obj.ContentType
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)
	if obj.ETag != "" {
		w.Header().Set("ETag", obj.ETag)
	}
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Body)
}

// handleDelete removes a shared chat. Ownership and role checks mirror
// handleSave, but a token verification failure here surfaces as a 400 with
// the underlying message where handleSave answers 403. The asymmetry is
// kept deliberately; tests pin it.
func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	owner := mux.Vars(r)["owner"]
	id := mux.Vars(r)["id"]
	logger := observability.FromContext(ctx).WithField("owner", owner).WithField("chat_id", id)

	session := auth.SessionFromRequest(r)
	if session.AccessToken == "" {
		httputil.WriteForbidden(w, "Missing Access Token")
		return
	}
	if session.IDToken == "" {
		httputil.WriteForbidden(w, "Missing ID Token")
		return
	}

	claims, err := auth.VerifyToken(session.AccessToken, h.secret)
	if err != nil {
		httputil.WriteBadRequest(w, err.Error())
		return
	}
	if claims.Subject != owner {
		httputil.WriteForbidden(w, "Access Token does not match username")
		return
	}
	if claims.Role() != auth.RoleAPI {
		httputil.WriteForbidden(w, "Access Token missing role")
		return
	}

	h.metrics.StorageOperationsTotal.WithLabelValues("delete").Inc()
	if err := h.store.Delete(ctx, owner+"/"+id); err != nil {
		h.storageError(w, logger, "delete", err)
		return
	}

	auth.SetSessionCookies(w, session.AccessToken, session.IDToken)
	h.metrics.SharedChatsDeleted.Inc()
	logger.Info("shared chat deleted")
	httputil.WriteMessage(w, "Shared chat deleted")
}

func (h *Handler) handleBadPath(w http.ResponseWriter, r *http.Request) {
	httputil.WriteBadRequest(w, "share path must be /api/share/{owner}/{id}")
}

func (h *Handler) storageError(w http.ResponseWriter, logger *observability.Logger, op string, err error) {
	h.metrics.StorageErrorsTotal.WithLabelValues(op).Inc()
	logger.WithError(err).Error("storage operation failed")
	httputil.WriteInternalError(w, err)
}

func isJSONContentType(value string) bool {
	mediaType, _, err := mime.ParseMediaType(value)
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}
