// ABOUTME: net/http adapter exposing the pipeline as POST <prefix>/{view}
// ABOUTME: Reads the JSON body with a size limit and writes the mapped response

package rpc

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
)

// MaxBodyBytes limits the size of an RPC request body.
const MaxBodyBytes = 1 << 20

// Routes registers the RPC endpoint on mux under prefix (for example "/rpc").
func (p *Pipeline) Routes(mux *http.ServeMux, prefix string) {
	base := "/"
	if trimmed := strings.Trim(prefix, "/"); trimmed != "" {
		base = "/" + trimmed + "/"
	}
	mux.Handle("POST "+base+"{view}", p)
	// Catches "<prefix>/" so a missing view key gets a 400 instead of a 404.
	mux.Handle("POST "+base, p)
}

// ServeHTTP adapts one HTTP request to the pipeline.
func (p *Pipeline) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeJSON(w, http.StatusMethodNotAllowed, ErrorBody{Error: "method not allowed"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorBody{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, ErrorBody{Error: "bad request: unreadable body"})
		return
	}

	resp := p.Handle(r.Context(), &Request{
		ViewKey: r.PathValue("view"),
		Body:    body,
		Header:  r.Header,
	}, nil)
	WriteResponse(w, resp)
}

// WriteResponse copies the response headers and writes the JSON body.
func WriteResponse(w http.ResponseWriter, resp *Response) {
	for k, v := range resp.Header {
		w.Header()[k] = v
	}
	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	writeJSON(w, status, resp.Body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
