package oauth2

// ResponseType represents the OAuth 2.0 response type requested at the authorization endpoint.
type ResponseType string

const (
	// CodeResponseType indicates the authorization code flow.
	// Example: /oauth2/authorize?response_type=code&client_id=...
	CodeResponseType ResponseType = "code"
)

// ApprovalPrompt controls whether the provider re-prompts a user who has already approved the client.
type ApprovalPrompt string

const (
	// ApprovalPromptAuto only prompts when the user has not approved the requested scopes before.
	ApprovalPromptAuto ApprovalPrompt = "auto"
)

// GrantType represents the OAuth 2.0 grant type used at the token endpoint.
type GrantType string

const (
	// AuthorizationCodeGrant exchanges an authorization code for tokens.
	// Token request includes: code, client_id, client_secret, redirect_uri
	// Returns: access_token, id_token, refresh_token (if offline_access was granted)
	AuthorizationCodeGrant GrantType = "authorization_code"

	// RefreshTokenCodeGrant exchanges a refresh token for new tokens.
	// Token request includes: refresh_token, client_id, client_secret
	// Returns: new access_token and usually a rotated refresh_token
	RefreshTokenCodeGrant GrantType = "refresh_token"
)

// Scopes recognised by the provider, space separated in requests.
const (
	ScopeBasic         = "basic"
	ScopeWrite         = "write"
	ScopeOfflineAccess = "offline_access"
)
