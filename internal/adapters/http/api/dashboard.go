// Package api declares HTTP contracts and route registration helpers.
package api

import "net/http"

// dashboardHandler serves the embedded live dashboard page.
type dashboardHandler struct {
	page []byte
}

func newdashboardHandler() *dashboardHandler {
	page, err := staticFS.ReadFile("static/dashboard.html")
	if err != nil {
		// Should never happen; the page is compiled into the binary.
		page = []byte("<!doctype html><title>dashboard unavailable</title>")
	}
	return &dashboardHandler{page: page}
}

// HandleDashboard handles GET /dashboard requests.
func (h *dashboardHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(h.page)
}
