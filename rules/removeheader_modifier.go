package rules

import (
	"fmt"
	"slices"
	"strings"
)

// removeHeaderRequestPrefix marks the $removeheader values applied to request
// headers.
const removeHeaderRequestPrefix = "request:"

// forbiddenHeaders are the headers that cannot be removed with $removeheader.
var forbiddenHeaders = []string{
	"access-control-allow-origin",
	"access-control-allow-credentials",
	"access-control-allow-headers",
	"access-control-allow-methods",
	"access-control-expose-headers",
	"access-control-max-age",
	"access-control-request-headers",
	"access-control-request-method",
	"origin",
	"timing-allow-origin",
	"allow",
	"cross-origin-embedder-policy",
	"cross-origin-opener-policy",
	"cross-origin-resource-policy",
	"content-security-policy",
	"content-security-policy-report-only",
	"expect-ct",
	"feature-policy",
	"origin-isolation",
	"strict-transport-security",
	"upgrade-insecure-requests",
	"x-content-type-options",
	"x-download-options",
	"x-frame-options",
	"x-permitted-cross-domain-policies",
	"x-powered-by",
	"x-xss-protection",
	"public-key-pins",
	"public-key-pins-report-only",
	"sec-websocket-key",
	"sec-websocket-extensions",
	"sec-websocket-accept",
	"sec-websocket-protocol",
	"sec-websocket-version",
	"p3p",
	"sec-fetch-mode",
	"sec-fetch-dest",
	"sec-fetch-site",
	"sec-fetch-user",
	"referrer-policy",
	"content-type",
	"content-length",
	"accept",
	"accept-encoding",
	"host",
	"connection",
	"transfer-encoding",
	"upgrade",
}

// RemoveHeaderModifier is the $removeheader modifier.
type RemoveHeaderModifier struct {
	value string

	// headerName is empty if the header is forbidden or malformed.
	headerName string

	isRequest bool
}

// NewRemoveHeaderModifier parses the value of the $removeheader modifier.  The
// value may only be empty in allowlist rules.
func NewRemoveHeaderModifier(value string, isAllowlist bool) (m *RemoveHeaderModifier, err error) {
	value = strings.ToLower(value)
	if value == "" && !isAllowlist {
		return nil, fmt.Errorf("$removeheader: %w", ErrEmptyValue)
	}

	m = &RemoveHeaderModifier{
		value:     value,
		isRequest: strings.HasPrefix(value, removeHeaderRequestPrefix),
	}

	name := strings.TrimPrefix(value, removeHeaderRequestPrefix)
	if !slices.Contains(forbiddenHeaders, name) && !strings.Contains(name, ":") {
		m.headerName = name
	}

	return m, nil
}

// Value implements the [AdvancedModifier] interface for *RemoveHeaderModifier.
func (m *RemoveHeaderModifier) Value() (v string) { return m.value }

// isAdvancedModifier implements the [AdvancedModifier] interface for
// *RemoveHeaderModifier.
func (*RemoveHeaderModifier) isAdvancedModifier() {}

// IsValid returns false if the header cannot be removed.
func (m *RemoveHeaderModifier) IsValid() (ok bool) { return m.headerName != "" }

// ApplicableHeaderName returns the name of the header to remove from the
// request headers, if isRequest is true, or from the response headers.  name
// is empty if the modifier doesn't apply.
func (m *RemoveHeaderModifier) ApplicableHeaderName(isRequest bool) (name string) {
	if isRequest != m.isRequest {
		return ""
	}

	return m.headerName
}
