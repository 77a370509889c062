package domain

import (
	"bytes"
	"encoding/json"
	"net/url"
)

type URL struct {
	*url.URL
}

// MarshalJSON leaves '&', '<' and '>' unescaped so query strings stay
// readable. Encoders that escape HTML still escape them afterwards.
func (u URL) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(u.String()); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func (u *URL) UnmarshalJSON(text []byte) (err error) {
	var raw string
	if err = json.Unmarshal(text, &raw); err != nil {
		return
	}
	*u, err = ParseURL(raw)
	return
}

func (u URL) String() string {
	if u.URL == nil {
		return ""
	}
	return u.URL.String()
}

func (u URL) IsZero() bool {
	return u.URL == nil
}

// IsHTTP reports whether u is an absolute http or https URL.
func (u URL) IsHTTP() bool {
	if u.URL == nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}

func ParseURL(text string) (u URL, err error) {
	p, err := url.Parse(text)
	if err != nil {
		return
	}
	u = URL{p}
	return
}
