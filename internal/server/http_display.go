package server

import (
	"fmt"
	"io"
	"strings"

	"careermatch/internal/utils"
)

// printBanner writes the route table and the security settings to w.
func (s *Server) printBanner(w io.Writer) {
	fmt.Fprintln(w, "Available endpoints:")
	for _, rt := range s.routes() {
		if !rt.listed {
			continue
		}
		method, path, _ := strings.Cut(rt.pattern, " ")
		fmt.Fprintf(w, "  %-5s%-20s %s\n", method, path, rt.summary)
	}

	switch n := len(s.APIKeys); n {
	case 0:
		fmt.Fprintln(w, "API keys: none configured, endpoints are public")
	default:
		fmt.Fprintf(w, "API keys: %d configured (X-API-Key or Bearer token; /health and /stats are open)\n", n)
	}

	if s.MaxRequestSize > 0 {
		fmt.Fprintf(w, "Request body limit: %s\n", utils.FormatFileSize(s.MaxRequestSize))
	} else {
		fmt.Fprintln(w, "Request body limit: off")
	}

	if s.RateLimiter == nil {
		fmt.Fprintln(w, "Rate limit: off")
		return
	}
	var scopes []string
	if s.RateLimit.ByAPIKey {
		scopes = append(scopes, "api key")
	}
	if s.RateLimit.ByIP {
		scopes = append(scopes, "client ip")
	}
	if len(scopes) == 0 {
		scopes = []string{"server"}
	}
	fmt.Fprintf(w, "Rate limit: %d/min, burst %d, per %s\n",
		s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity, strings.Join(scopes, " and "))
}
