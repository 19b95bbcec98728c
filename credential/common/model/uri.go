package model

import (
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/pilacorp/go-vc-signing/credential/common/cborcodec"
	"github.com/pilacorp/go-vc-signing/credential/common/jsonmap"
)

// URI is an absolute URI (URL, URN or DID). It travels as a plain string on
// every wire format and is re-validated whenever it is decoded.
type URI string

// ParseURI validates s as an absolute URI.
func ParseURI(s string) (URI, error) {
	if s == "" {
		return "", fmt.Errorf("URI is empty")
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", fmt.Errorf("invalid URI %q: %w", s, err)
	}
	if u.Scheme == "" {
		return "", fmt.Errorf("invalid URI %q: missing scheme", s)
	}
	return URI(s), nil
}

// MustParseURI is ParseURI for package-level constants.
func MustParseURI(s string) URI {
	u, err := ParseURI(s)
	if err != nil {
		panic(err)
	}
	return u
}

func (u URI) String() string { return string(u) }

// IsZero reports whether the URI is unset.
func (u URI) IsZero() bool { return u == "" }

// UnmarshalJSON validates the decoded string. A JSON null leaves the URI unset.
func (u *URI) UnmarshalJSON(data []byte) error {
	if jsonmap.IsNull(data) {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("URI must be a string: %w", err)
	}
	parsed, err := ParseURI(s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}

// UnmarshalCBOR validates the decoded text string. CBOR null leaves the URI unset.
func (u *URI) UnmarshalCBOR(data []byte) error {
	var s *string
	if err := cborcodec.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("URI must be a text string: %w", err)
	}
	if s == nil {
		return nil
	}
	parsed, err := ParseURI(*s)
	if err != nil {
		return err
	}
	*u = parsed
	return nil
}
