package tenant

import (
	"net"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/WailSalutem-Health-Care/emr-service/internal/apperr"
	"github.com/WailSalutem-Health-Care/emr-service/internal/config"
)

var errNoSubdomain = apperr.New(apperr.NotFound, "no tenant subdomain in request host")

// SubdomainFromHost returns the leftmost label of host beneath baseDomain,
// or "" when host is the base domain itself, a reserved label, or a host
// outside baseDomain.
func SubdomainFromHost(host, baseDomain string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	baseDomain = strings.TrimSuffix(strings.ToLower(baseDomain), ".")

	prefix := strings.TrimSuffix(host, "."+baseDomain)
	if prefix == host || prefix == "" {
		return ""
	}
	if i := strings.LastIndex(prefix, "."); i >= 0 {
		// a.b.base resolves to the label directly under the base domain
		prefix = prefix[i+1:]
	}
	if reservedSubdomains[prefix] {
		return ""
	}
	return prefix
}

// Resolver maps the request host to a tenant and stores it on the context.
type Resolver struct {
	lookup      Lookup
	baseDomain  string
	devFallback bool
	log         zerolog.Logger
}

func NewResolver(lookup Lookup, cfg config.Tenancy, log zerolog.Logger) *Resolver {
	return &Resolver{
		lookup:      lookup,
		baseDomain:  cfg.BaseDomain,
		devFallback: cfg.DevFallback,
		log:         log,
	}
}

func (rs *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		subdomain := SubdomainFromHost(r.Host, rs.baseDomain)

		var (
			t   *Tenant
			err error
		)
		switch {
		case subdomain != "":
			t, err = rs.lookup.Resolve(ctx, subdomain)
		case rs.devFallback:
			t, err = rs.lookup.ResolveFallback(ctx)
			if err == nil {
				rs.log.Warn().
					Str("host", r.Host).
					Str("tenant", t.Subdomain).
					Msg("no tenant subdomain in host, using development fallback tenant")
			}
		default:
			err = errNoSubdomain
		}

		if err != nil {
			apperr.Respond(w, rs.log.With().Str("host", r.Host).Logger(), err)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithTenant(ctx, t)))
	})
}
