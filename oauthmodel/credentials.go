package oauthmodel

const redacted = "[REDACTED]"

// ClientCredentials identify the registered application to the provider.
// Both values are opaque secrets: they are sent to the provider and nowhere else.
type ClientCredentials struct {
	ClientID     string
	ClientSecret string
}

// String hides both values so credentials are safe to print by accident.
func (c ClientCredentials) String() string {
	return "client_id=" + redacted + " client_secret=" + redacted
}
