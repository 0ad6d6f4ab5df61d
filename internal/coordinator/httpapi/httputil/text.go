// Package httputil holds small request/response helpers shared by the
// coordinator's HTTP handlers. Unlike a JSON API gateway, every dispatcher
// endpoint responds with plain text (spec.md section 4.4), so these
// helpers write bare strings rather than envelopes.
package httputil

import "net/http"

// WriteText writes status with body as the entire response, content-type
// text/plain.
func WriteText(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

// WriteError is WriteText for the error path; kept distinct so call sites
// read as intent rather than as "another 200".
func WriteError(w http.ResponseWriter, status int, message string) {
	WriteText(w, status, message)
}
