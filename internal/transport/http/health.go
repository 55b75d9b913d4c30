package http

import "net/http"

// HealthHandler reports process liveness. Dependency health is covered by
// the database and cache pings at startup; this endpoint only tells the
// load balancer the process is serving.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Service: "seathold"})
}

type healthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}
