package server

import (
	"errors"
	"net/http"

	"github.com/bobmcallan/payoff/internal/strategy"
)

// hopByHopHeaders are stripped when relaying a mediated response.
var hopByHopHeaders = map[string]bool{
	"Connection":          true,
	"Keep-Alive":          true,
	"Proxy-Authenticate":  true,
	"Proxy-Authorization": true,
	"Te":                  true,
	"Trailer":             true,
	"Transfer-Encoding":   true,
	"Upgrade":             true,
}

// handleGateway is the interception point: every request not owned by the
// control plane is classified and run through its caching strategy.
func (s *Server) handleGateway(w http.ResponseWriter, r *http.Request) {
	req, err := strategy.FromHTTP(r)
	if err != nil {
		if errors.Is(err, strategy.ErrBodyTooLarge) {
			WriteError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		WriteError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	kind := s.app.Resolver.Classify(req)

	resp, err := s.app.Executor.Execute(r.Context(), kind, req)
	if err != nil {
		// Only fallback-exhausted strategies land here; the two core
		// calculator endpoints always produce a well-formed response.
		s.logger.Info().
			Str("path", req.Path).
			Str("strategy", string(kind)).
			Err(err).
			Msg("Mediation exhausted without a response")
		WriteError(w, http.StatusBadGateway, "Upstream unavailable")
		return
	}

	header := w.Header()
	for k, vs := range resp.Header {
		if hopByHopHeaders[http.CanonicalHeaderKey(k)] {
			continue
		}
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	w.WriteHeader(resp.StatusCode)
	w.Write(resp.Body)
}
