package http

import (
	"fmt"
	"net/http"
)

// NotFoundHandler answers unknown routes and disallowed methods with the
// API's JSON error shape, naming the request so misrouted clients can see
// what they actually sent.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		msg := fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path)
		writeError(w, http.StatusNotFound, codeNotFound, msg)
	})
}
