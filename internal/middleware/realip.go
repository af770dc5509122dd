package middleware

import (
	"fmt"
	"net"
	"net/http"

	"github.com/realclientip/realclientip-go"
)

// ForwardedHeader is the header trusted proxies append the client address to.
const ForwardedHeader = "X-Forwarded-For"

// RealIP rewrites r.RemoteAddr to the forwarded client address, but only
// for requests whose direct peer is one of proxies (addresses or CIDR
// ranges). Requests from any other peer keep their socket address so a
// client cannot pick the address rate limits are keyed on. With no proxies
// the returned middleware is a no-op.
func RealIP(proxies []string) (func(http.Handler) http.Handler, error) {
	if len(proxies) == 0 {
		return func(next http.Handler) http.Handler { return next }, nil
	}
	trusted, err := realclientip.AddressesAndRangesToIPNets(proxies...)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}
	strat, err := realclientip.NewRightmostTrustedRangeStrategy(ForwardedHeader, trusted)
	if err != nil {
		return nil, fmt.Errorf("trusted proxies: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if inRanges(ClientIP(r), trusted) {
				if ip := strat.ClientIP(r.Header, r.RemoteAddr); ip != "" {
					r.RemoteAddr = net.JoinHostPort(ip, "0")
				}
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}

func inRanges(addr string, ranges []net.IPNet) bool {
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range ranges {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}
