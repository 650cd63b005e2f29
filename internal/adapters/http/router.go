package httpadapter

import (
	"encoding/json"
	"net/http"

	"github.com/AdamCJJ/jiffy-volume-app/internal/core/ports"
	"github.com/AdamCJJ/jiffy-volume-app/internal/observability/metrics"
)

// UploadLimits bounds a single estimate submission.
type UploadLimits struct {
	MaxPhotoCount int
	MaxFileBytes  int64
}

// CookieSettings controls the session cookie the login handler issues.
type CookieSettings struct {
	Name   string
	Secure bool
}

type Router struct {
	auth      ports.AuthGate
	estimates ports.EstimateService
	history   ports.HistoryService
	uploads   UploadLimits
	cookies   CookieSettings
	metrics   *metrics.HTTPServerMetrics
}

func NewRouter(
	auth ports.AuthGate,
	estimates ports.EstimateService,
	history ports.HistoryService,
	uploads UploadLimits,
	cookies CookieSettings,
	serverMetrics *metrics.HTTPServerMetrics,
) *Router {
	return &Router{
		auth:      auth,
		estimates: estimates,
		history:   history,
		uploads:   uploads,
		cookies:   cookies,
		metrics:   serverMetrics,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/api/ping", rt.ping)
	mux.HandleFunc("/api/login", rt.login)
	mux.HandleFunc("/api/logout", rt.logout)
	mux.HandleFunc("/api/estimate", rt.requireSession(rt.createEstimate))
	mux.HandleFunc("/api/estimate/", rt.requireSession(rt.getEstimate))
	mux.HandleFunc("/api/history", rt.requireSession(rt.listHistory))
	mux.HandleFunc("/api/history/export", rt.requireSession(rt.exportHistory))
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}

	var handler http.Handler = mux
	if rt.metrics != nil {
		handler = rt.metrics.Middleware("api", handler)
	}
	handler = recoverMiddleware(handler)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) ping(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	writeJSON(w, status, map[string]string{"error": errorMessage(status, err)})
}
