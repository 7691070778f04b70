// file: internal/mcp/httpgate.go
package mcp

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/hostbridge/hostbridge/internal/logging"
	"github.com/hostbridge/hostbridge/internal/protocol"
)

// maxRequestBody bounds the accepted HTTP request size.
const maxRequestBody = 1024 * 1024

// HTTPGate serves the protocol over plain HTTP POST for callers that cannot
// hold a socket open. Only POST is accepted; every other verb is answered
// with the fixed method-not-allowed error and no id. Each POST body carries
// one message and the response body carries its response, or nothing for a
// notification.
type HTTPGate struct {
	server *Server
	logger logging.Logger
}

// NewHTTPGate creates an HTTPGate in front of server.
func NewHTTPGate(server *Server, logger logging.Logger) *HTTPGate {
	if logger == nil {
		logger = logging.GetNoopLogger()
	}
	return &HTTPGate{
		server: server,
		logger: logger.WithField("component", "http_gate"),
	}
}

// ServeHTTP implements http.Handler.
func (g *HTTPGate) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		g.logger.Debug("Rejected non-POST request.", "method", r.Method)
		writeResponse(w, http.StatusMethodNotAllowed,
			protocol.NewErrorResponse(nil, protocol.CodeMethodNotAllowed, "method not allowed", nil))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		writeResponse(w, http.StatusBadRequest,
			protocol.NewErrorResponse(nil, protocol.CodeParseError, "failed to read request body", nil))
		return
	}

	msg, err := protocol.Parse(body)
	if err != nil {
		g.logger.Debug("Rejected unparseable request body.", "error", err)
		writeResponse(w, http.StatusBadRequest,
			protocol.NewErrorResponse(nil, protocol.CodeParseError, "parse error", nil))
		return
	}

	response := g.server.HandleMessage(r.Context(), msg)
	if response == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeResponse(w, http.StatusOK, response)
}

func writeResponse(w http.ResponseWriter, status int, msg *protocol.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(msg)
}
