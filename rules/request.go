package rules

import (
	"net/netip"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// Request represents a request with all the properties the engine needs for
// matching.  The engine never modifies a request.
type Request struct {
	// ClientIP is the IP address of the client that made the request.  It's
	// only used by the DNS filtering.
	ClientIP netip.Addr

	// URL is the request URL.
	URL string

	// URLLowerCase is URL in lower case.
	URLLowerCase string

	// Hostname is the request hostname.
	Hostname string

	// Domain is the eTLD+1 of Hostname.
	Domain string

	// SourceURL is the URL of the page that initiated the request.
	SourceURL string

	// SourceHostname is the hostname of SourceURL.
	SourceHostname string

	// SourceDomain is the eTLD+1 of SourceHostname.
	SourceDomain string

	// Method is the upper-case HTTP method of the request, if known.
	Method string

	// ClientName is the name of the client that made the request, if known.
	ClientName string

	// SortedClientTags are the client tags sorted in ascending order.
	SortedClientTags []string

	// RequestType is the type of the request.
	RequestType RequestType

	// DNSType is the DNS record type of a DNS request, zero for others.
	DNSType uint16

	// ThirdParty is true if the request is third-party.
	ThirdParty bool

	// IsHostnameRequest means that the request is for a given hostname and not
	// for a URL, so the protocol is unknown.  It's true for DNS requests.
	IsHostnameRequest bool
}

// NewRequest returns a new request for url initiated by a page at sourceURL.
func NewRequest(url, sourceURL string, reqType RequestType) (r *Request) {
	r = &Request{
		RequestType:    reqType,
		URL:            url,
		URLLowerCase:   strings.ToLower(url),
		Hostname:       extractHostname(url),
		SourceURL:      sourceURL,
		SourceHostname: extractHostname(sourceURL),
	}

	r.Domain = effectiveDomain(r.Hostname)
	r.SourceDomain = effectiveDomain(r.SourceHostname)
	r.ThirdParty = r.SourceDomain != "" && r.SourceDomain != r.Domain

	return r
}

// NewRequestForHostname returns a new request for matching hostname.  It uses
// "http://" as the protocol and [TypeDocument] as the request type.
func NewRequestForHostname(hostname string) (r *Request) {
	u := "http://" + hostname + "/"

	return &Request{
		RequestType:       TypeDocument,
		URL:               u,
		URLLowerCase:      strings.ToLower(u),
		Hostname:          hostname,
		Domain:            effectiveDomain(hostname),
		IsHostnameRequest: true,
	}
}

// effectiveDomain returns the eTLD+1 of hostname or hostname itself if it
// cannot be determined.
func effectiveDomain(hostname string) (domain string) {
	if hostname == "" {
		return ""
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(hostname)
	if err != nil || domain == "" {
		return hostname
	}

	return domain
}

// extractHostname quickly retrieves the hostname from a URL without full
// parsing.
func extractHostname(url string) (hostname string) {
	if url == "" {
		return ""
	}

	start := strings.Index(url, "//")
	if start == -1 {
		// A non-hierarchical URL, like stun: or turn:.
		start = strings.IndexByte(url, ':')
		if start == -1 {
			return ""
		}

		start++
	} else {
		start += 2
	}

	authority := url[start:]
	if end := strings.IndexAny(authority, "/?#"); end >= 0 {
		authority = authority[:end]
	}

	// Strip the userinfo, if any.
	if at := strings.LastIndexByte(authority, '@'); at >= 0 {
		authority = authority[at+1:]
	}

	return strings.ToLower(stripPort(authority))
}

// stripPort returns the host part of authority without the port and, for IPv6
// literals, without the brackets.
func stripPort(authority string) (host string) {
	if strings.HasPrefix(authority, "[") {
		end := strings.IndexByte(authority, ']')
		if end == -1 {
			return ""
		}

		return authority[1:end]
	}

	host, _, _ = strings.Cut(authority, ":")

	return host
}

// relativeURL returns the part of url starting with the path or an empty
// string if there is no path.
func relativeURL(url string) (rel string, ok bool) {
	start := strings.Index(url, "://")
	if start == -1 {
		start = 0
	} else {
		start += len("://")
	}

	i := strings.IndexByte(url[start:], '/')
	if i == -1 {
		return "", false
	}

	return url[start+i:], true
}
