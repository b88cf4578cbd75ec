package relay

import (
	"net/url"
	"strings"
)

// DefaultKeyParam is the query parameter used when no host suffix matches.
const DefaultKeyParam = "api_key"

// defaultKeyParams maps upstream host suffixes to the query parameter their
// API expects the credential in.
var defaultKeyParams = map[string]string{
	"openweathermap.org": "appid",
	"newsapi.org":        "apiKey",
	"alphavantage.co":    "apikey",
	"googleapis.com":     "key",
}

// KeyParamTable resolves the credential query parameter for an upstream
// host. Operators extend the built-in table through configuration; lookups
// are by host suffix so subdomains inherit their parent's entry.
type KeyParamTable struct {
	params map[string]string
}

// NewKeyParamTable builds a table from the defaults overlaid with operator
// overrides. Override suffixes are lowercased; an override for a built-in
// suffix replaces it.
func NewKeyParamTable(overrides map[string]string) *KeyParamTable {
	params := make(map[string]string, len(defaultKeyParams)+len(overrides))
	for suffix, param := range defaultKeyParams {
		params[suffix] = param
	}
	for suffix, param := range overrides {
		params[strings.ToLower(suffix)] = param
	}
	return &KeyParamTable{params: params}
}

// ParamFor returns the credential parameter name for a base URL.
func (t *KeyParamTable) ParamFor(baseURL string) string {
	u, err := url.Parse(baseURL)
	if err != nil {
		return DefaultKeyParam
	}
	host := strings.ToLower(u.Hostname())
	for suffix, param := range t.params {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return param
		}
	}
	return DefaultKeyParam
}

// BuildUpstreamURL joins the upstream base URL with the caller's path and
// appends the credential as a query parameter. The path keeps its own query
// string; the credential is always the last parameter.
func BuildUpstreamURL(baseURL, path, param, credential string) string {
	u := strings.TrimSuffix(baseURL, "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u += path

	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return u + sep + param + "=" + url.QueryEscape(credential)
}
