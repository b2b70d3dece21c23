// Package session resolves caller identity from incoming requests.
package session

import (
	"net"
	"net/http"
	"strings"

	"github.com/uxlens/uxlens/internal/audit"
)

// HeaderProvider trusts an upstream gateway to authenticate callers and
// forward the user ID in a configurable header. Requests without the header
// are treated as anonymous and tracked by originating address.
type HeaderProvider struct {
	userHeader string
}

// NewHeaderProvider builds a provider reading userHeader for the caller ID.
func NewHeaderProvider(userHeader string) *HeaderProvider {
	if userHeader == "" {
		userHeader = "X-Auth-User"
	}
	return &HeaderProvider{userHeader: userHeader}
}

// Session extracts the caller identity from r.
func (p *HeaderProvider) Session(r *http.Request) audit.Identity {
	id := audit.Identity{Address: clientAddress(r)}
	if user := strings.TrimSpace(r.Header.Get(p.userHeader)); user != "" {
		id.UserID = user
		id.Authenticated = true
	}
	return id
}

// clientAddress prefers the first hop of X-Forwarded-For, falling back to
// the socket address.
func clientAddress(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first := strings.TrimSpace(strings.Split(fwd, ",")[0])
		if first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
