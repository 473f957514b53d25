package models

import "github.com/rs/zerolog"

// MarshalZerologObject redacts password and API secret material so
// Credentials can be passed straight to a zerolog event without leaking
// anything beyond presence booleans.
func (c Credentials) MarshalZerologObject(e *zerolog.Event) {
	e.Bool("hasEmail", c.Email != nil).
		Bool("hasPassword", c.Password != nil).
		Bool("hasAPIKey", c.APIKey != nil).
		Bool("hasAPISecret", c.APISecret != nil)
}

// RedactedCredentials mirrors connectPlatform's credential echo: callers outside the
// adapter layer get booleans, never the underlying strings.
type RedactedCredentials struct {
	HasEmail    bool `json:"hasEmail"`
	HasPassword bool `json:"hasPassword"`
	HasAPIKey   bool `json:"hasApiKey"`
	HasSecret   bool `json:"hasApiSecret"`
}

func (c Credentials) Redact() RedactedCredentials {
	return RedactedCredentials{
		HasEmail:    c.Email != nil,
		HasPassword: c.Password != nil,
		HasAPIKey:   c.APIKey != nil,
		HasSecret:   c.APISecret != nil,
	}
}
