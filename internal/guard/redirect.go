package guard

import (
	"net/http"
	"strings"
)

// Redirector builds absolute redirect targets behind proxies. Precedence:
// configured public base URL, then forwarded-host/proto headers, then the
// bare relative path. This only produces correct URLs; it carries no
// security semantics.
type Redirector struct {
	BaseURL string
}

// Target resolves the absolute URL for a redirect path.
func (rd Redirector) Target(r *http.Request, path string) string {
	if base := strings.TrimRight(rd.BaseURL, "/"); base != "" {
		return base + path
	}
	if host := r.Header.Get("X-Forwarded-Host"); host != "" {
		proto := r.Header.Get("X-Forwarded-Proto")
		if proto == "" {
			proto = "https"
		}
		return proto + "://" + host + path
	}
	return path
}
