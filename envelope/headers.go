package envelope

import (
	"net/http"

	"github.com/kbukum/serviceclient/version"
)

// Standard header names.
const (
	HeaderAccept         = "Accept"
	HeaderAcceptLanguage = "Accept-Language"
	HeaderContentType    = "Content-Type"
	HeaderUserAgent      = "User-Agent"
	HeaderCompanyCode    = "x-company-code"
	HeaderClientID       = "x-client-id"
)

const (
	ContentTypeJSON = "application/json"
	DefaultLanguage = "en-US"
)

// Identity is the tenant identity stamped on outbound requests.
type Identity struct {
	CompanyCode string `yaml:"company_code" mapstructure:"company_code"`
	ClientID    string `yaml:"client_id" mapstructure:"client_id"`
}

// Merge returns id with non-empty fields of override applied.
func (id Identity) Merge(override Identity) Identity {
	out := id
	if override.CompanyCode != "" {
		out.CompanyCode = override.CompanyCode
	}
	if override.ClientID != "" {
		out.ClientID = override.ClientID
	}
	return out
}

// Headers composes the outbound header set. The standard headers come first,
// caller headers override them, and User-Agent is always the client's own.
// Identity headers with an empty value are omitted.
func Headers(id Identity, caller map[string]string) http.Header {
	h := http.Header{}
	h.Set(HeaderAccept, ContentTypeJSON)
	h.Set(HeaderAcceptLanguage, DefaultLanguage)
	h.Set(HeaderContentType, ContentTypeJSON)
	if id.CompanyCode != "" {
		h.Set(HeaderCompanyCode, id.CompanyCode)
	}
	if id.ClientID != "" {
		h.Set(HeaderClientID, id.ClientID)
	}
	for k, v := range caller {
		h.Set(k, v)
	}
	h.Set(HeaderUserAgent, version.UserAgent())
	return h
}

// RegistryHeaders is the header set of a registry lookup, which carries the
// company code but no client ID.
func RegistryHeaders(companyCode string) http.Header {
	return Headers(Identity{CompanyCode: companyCode}, nil)
}
