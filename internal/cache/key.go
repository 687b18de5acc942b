package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"sort"
	"strings"
)

// ErrEmptyEndpoint is returned when a key is requested for an empty endpoint.
var ErrEmptyEndpoint = errors.New("endpoint cannot be empty")

// KeyParams identifies a REST query whose result is cached.
type KeyParams struct {
	// Method is the HTTP method; empty means GET.
	Method string `json:"method"`

	// Endpoint is the request path, e.g. "/products".
	Endpoint string `json:"endpoint"`

	// Query holds the query parameters.
	Query map[string]string `json:"query,omitempty"`

	// Scope separates otherwise identical queries made for different
	// audiences (for example a vendor ID or "public").
	Scope string `json:"scope,omitempty"`
}

// normalizedKeyParams is the canonical form hashed into a key.
type normalizedKeyParams struct {
	Method   string      `json:"m"`
	Endpoint string      `json:"e"`
	Query    [][2]string `json:"q,omitempty"`
	Scope    string      `json:"s,omitempty"`
}

// GenerateKey returns a deterministic SHA-256 key for params.
// Method case, surrounding whitespace, trailing slashes and query order do not
// affect the key.
func GenerateKey(params KeyParams) (string, error) {
	endpoint := strings.TrimSpace(params.Endpoint)
	if endpoint == "" {
		return "", ErrEmptyEndpoint
	}
	if endpoint != "/" {
		endpoint = strings.TrimRight(endpoint, "/")
	}

	method := strings.ToUpper(strings.TrimSpace(params.Method))
	if method == "" {
		method = http.MethodGet
	}

	norm := normalizedKeyParams{
		Method:   method,
		Endpoint: endpoint,
		Scope:    strings.TrimSpace(params.Scope),
	}

	names := make([]string, 0, len(params.Query))
	for k := range params.Query {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		norm.Query = append(norm.Query, [2]string{k, params.Query[k]})
	}

	data, err := json.Marshal(norm)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// GenerateSimpleKey joins parts into a readable key, e.g. "products:list:page=2".
func GenerateSimpleKey(parts ...string) string {
	trimmed := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			trimmed = append(trimmed, p)
		}
	}
	return strings.Join(trimmed, ":")
}

// KeyParamsBuilder builds KeyParams fluently.
type KeyParamsBuilder struct {
	params KeyParams
}

// NewKeyParamsBuilder starts a builder for a GET of endpoint.
func NewKeyParamsBuilder(endpoint string) *KeyParamsBuilder {
	return &KeyParamsBuilder{params: KeyParams{Endpoint: endpoint}}
}

// WithMethod sets the HTTP method.
func (b *KeyParamsBuilder) WithMethod(method string) *KeyParamsBuilder {
	b.params.Method = method
	return b
}

// WithQuery adds a query parameter.
func (b *KeyParamsBuilder) WithQuery(name, value string) *KeyParamsBuilder {
	if b.params.Query == nil {
		b.params.Query = make(map[string]string)
	}
	b.params.Query[name] = value
	return b
}

// WithScope sets the scope.
func (b *KeyParamsBuilder) WithScope(scope string) *KeyParamsBuilder {
	b.params.Scope = scope
	return b
}

// BuildParams returns the accumulated params.
func (b *KeyParamsBuilder) BuildParams() KeyParams {
	return b.params
}

// Build generates the key for the accumulated params.
func (b *KeyParamsBuilder) Build() (string, error) {
	return GenerateKey(b.params)
}
