package assets

import (
	"strings"
)

// Well-known response header names.
const (
	HeaderAcceptRanges    = "Accept-Ranges"
	HeaderCacheControl    = "Cache-Control"
	HeaderContentEncoding = "Content-Encoding"
	HeaderContentLength   = "Content-Length"
	HeaderContentType     = "Content-Type"
	HeaderETag            = "ETag"
	HeaderLastModified    = "Last-Modified"
	HeaderVary            = "Vary"
)

// Well-known endpoint property names.
const (
	PropertyFingerprint = "fingerprint"
	PropertyIntegrity   = "integrity"
	PropertyLabel       = "label"
)

// Endpoint is a concrete route a server can answer, backed by one file.
type Endpoint struct {
	Route              string           `json:"Route"`
	AssetFile          string           `json:"AssetFile"`
	Selectors          []Selector       `json:"Selectors"`
	ResponseHeaders    []ResponseHeader `json:"ResponseHeaders"`
	EndpointProperties []Property       `json:"EndpointProperties"`
}

// Selector is a content negotiation dimension, e.g. Content-Encoding=gzip.
//
// Quality ranks alternatives for the same route. The pipeline derives it from
// the variant's size (smaller wins), so it is a tie-break between encodings
// the client accepts, not an HTTP preference weight.
type Selector struct {
	Name    string `json:"Name"`
	Value   string `json:"Value"`
	Quality string `json:"Quality"`
}

// ResponseHeader is a header written when the endpoint is served.
type ResponseHeader struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// Property is endpoint metadata that is not sent to clients.
type Property struct {
	Name  string `json:"Name"`
	Value string `json:"Value"`
}

// Header returns the value of the first header named name (case-insensitive).
func (e *Endpoint) Header(name string) (string, bool) {
	for _, h := range e.ResponseHeaders {
		if strings.EqualFold(h.Name, name) {
			return h.Value, true
		}
	}
	return "", false
}

// SetHeader replaces the value of an existing header in place, keeping its
// position, or appends the header.
func (e *Endpoint) SetHeader(name, value string) {
	for i, h := range e.ResponseHeaders {
		if strings.EqualFold(h.Name, name) {
			e.ResponseHeaders[i].Value = value
			return
		}
	}
	e.ResponseHeaders = append(e.ResponseHeaders, ResponseHeader{Name: name, Value: value})
}

// AddHeader appends a header.
func (e *Endpoint) AddHeader(name, value string) {
	e.ResponseHeaders = append(e.ResponseHeaders, ResponseHeader{Name: name, Value: value})
}

// Property returns the value of the property named name.
func (e *Endpoint) Property(name string) (string, bool) {
	for _, p := range e.EndpointProperties {
		if p.Name == name {
			return p.Value, true
		}
	}
	return "", false
}

// AddProperty appends a property.
func (e *Endpoint) AddProperty(name, value string) {
	e.EndpointProperties = append(e.EndpointProperties, Property{Name: name, Value: value})
}

// Selector returns the selector named name.
func (e *Endpoint) Selector(name string) (Selector, bool) {
	for _, s := range e.Selectors {
		if strings.EqualFold(s.Name, name) {
			return s, true
		}
	}
	return Selector{}, false
}

// IsDefault reports whether the endpoint carries no selectors, making it the
// fallback when negotiation does not pick a variant.
func (e *Endpoint) IsDefault() bool {
	return len(e.Selectors) == 0
}

// SelectorKey renders the selector set in a canonical form.
func (e *Endpoint) SelectorKey() string {
	parts := make([]string, len(e.Selectors))
	for i, s := range e.Selectors {
		parts[i] = s.Name + "=" + s.Value + ";q=" + s.Quality
	}
	return strings.Join(parts, ",")
}

// Key identifies an endpoint by route, backing file, and selector set.
func (e *Endpoint) Key() string {
	return e.Route + "\x00" + e.AssetFile + "\x00" + e.SelectorKey()
}

// Clone returns a deep copy of the endpoint.
func (e Endpoint) Clone() Endpoint {
	out := e
	out.Selectors = append([]Selector(nil), e.Selectors...)
	out.ResponseHeaders = append([]ResponseHeader(nil), e.ResponseHeaders...)
	out.EndpointProperties = append([]Property(nil), e.EndpointProperties...)
	return out
}
