// Package imagex finds a representative image on an article page.
package imagex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/VaIkyranna/SheSpeaksMainSite/internal/web"
)

var (
	ErrMissingURL = errors.New("missing url")
	ErrInvalidURL = errors.New("invalid url")
	ErrNoImage    = errors.New("no image found")
	ErrForbidden  = errors.New("host not allowed")
)

// selectors are tried in order; the first non-empty value wins.
var selectors = []struct {
	query string
	attr  string
}{
	{`meta[property="og:image"]`, "content"},
	{`meta[name="twitter:image"]`, "content"},
	{`img[src]`, "src"},
}

type Extractor struct {
	client *web.Client
	lookup func(ctx context.Context, host string) ([]net.IPAddr, error)

	// allowPrivate skips the public-address check.
	allowPrivate bool
}

// New returns an extractor. The client should send a browser user agent;
// see web.BrowserUserAgent.
func New(client *web.Client) *Extractor {
	return &Extractor{client: client, lookup: net.DefaultResolver.LookupIPAddr}
}

// Extract fetches pageURL and returns an absolute image URL.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	pageURL = strings.TrimSpace(pageURL)
	if pageURL == "" {
		return "", ErrMissingURL
	}
	base, err := url.Parse(pageURL)
	if err != nil || (base.Scheme != "http" && base.Scheme != "https") || base.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, pageURL)
	}
	if !e.allowPrivate {
		if err := e.checkHost(ctx, base.Hostname()); err != nil {
			return "", err
		}
	}

	body, err := e.client.Get(ctx, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	return FromHTML(body, base)
}

// checkHost rejects hosts that are or resolve to loopback, private,
// link-local or unspecified addresses.
func (e *Extractor) checkHost(ctx context.Context, host string) error {
	var addrs []net.IP
	if ip := net.ParseIP(host); ip != nil {
		addrs = []net.IP{ip}
	} else {
		resolved, err := e.lookup(ctx, host)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", host, err)
		}
		for _, a := range resolved {
			addrs = append(addrs, a.IP)
		}
	}
	for _, ip := range addrs {
		if ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() ||
			ip.IsLinkLocalUnicast() || ip.IsLinkLocalMulticast() {
			return fmt.Errorf("%w: %s", ErrForbidden, host)
		}
	}
	return nil
}

// FromHTML picks the image from an already fetched document.
func FromHTML(body []byte, base *url.URL) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}
	for _, sel := range selectors {
		var found string
		doc.Find(sel.query).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			found = strings.TrimSpace(s.AttrOr(sel.attr, ""))
			return found == ""
		})
		if found == "" {
			continue
		}
		ref, err := url.Parse(found)
		if err != nil {
			continue
		}
		return base.ResolveReference(ref).String(), nil
	}
	return "", ErrNoImage
}
