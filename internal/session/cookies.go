package session

import (
	"context"
	"fmt"
	"net/http"

	"github.com/browserutils/kooky"
	_ "github.com/browserutils/kooky/browser/all"
	"github.com/sirupsen/logrus"
)

// CookieSource yields the session cookies to attach to dashboard requests.
type CookieSource interface {
	Cookies(ctx context.Context, domain string) ([]*http.Cookie, error)
}

// BrowserSource reads cookies out of the browsers installed on this machine.
// The dashboard endpoint authenticates via the user's existing web session,
// so a signed-in browser is the only credential we need.
type BrowserSource struct {
	log *logrus.Logger
}

func NewBrowserSource(log *logrus.Logger) *BrowserSource {
	return &BrowserSource{log: log}
}

func (s *BrowserSource) Cookies(ctx context.Context, domain string) ([]*http.Cookie, error) {
	found, err := kooky.ReadCookies(ctx, kooky.Valid, kooky.DomainHasSuffix(domain))
	if err != nil && len(found) == 0 {
		return nil, fmt.Errorf("session: reading browser cookies for %s: %w", domain, err)
	}
	if err != nil {
		// Partial results: some cookie stores are locked or unreadable.
		s.log.WithError(err).Debug("some browser cookie stores could not be read")
	}

	cookies := make([]*http.Cookie, 0, len(found))
	for _, c := range found {
		if c == nil || c.Name == "" {
			continue
		}
		cookies = append(cookies, &http.Cookie{
			Name:    c.Name,
			Value:   c.Value,
			Domain:  c.Domain,
			Path:    c.Path,
			Expires: c.Expires,
		})
	}

	cookies = Dedupe(cookies)
	s.log.WithFields(logrus.Fields{
		"domain":  domain,
		"cookies": len(cookies),
	}).Debug("collected browser session cookies")
	return cookies, nil
}

// Dedupe keeps one cookie per name, preferring the one expiring last. Several
// browsers can hold the same session cookie; the freshest copy is the one
// most likely to still be valid.
func Dedupe(cookies []*http.Cookie) []*http.Cookie {
	byName := make(map[string]*http.Cookie, len(cookies))
	order := make([]string, 0, len(cookies))
	for _, c := range cookies {
		prev, seen := byName[c.Name]
		if !seen {
			byName[c.Name] = c
			order = append(order, c.Name)
			continue
		}
		if c.Expires.After(prev.Expires) {
			byName[c.Name] = c
		}
	}

	out := make([]*http.Cookie, 0, len(byName))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}
