package client

import "strings"

// Messages shown when an OAuth callback comes back with an error code.
const (
	genericConnectionError = "Connection failed. Please try again."
	workspaceInitializing  = "Your workspace is still being set up. Please try again in a moment."
)

// oauthErrorMessages maps the callback error codes the backend emits to
// user-facing sentences.
var oauthErrorMessages = map[string]string{
	"oauth_unauthorized":       "You are not signed in. Please log in and try connecting again.",
	"no_workspace":             workspaceInitializing,
	"NO_WORKSPACE":             workspaceInitializing,
	"WORKSPACE_INIT_ERROR":     workspaceInitializing,
	"user_denied":              "You declined the connection request. No account was connected.",
	"missing_params":           "The platform returned an incomplete response. Please try again.",
	"csrf_check_failed":        "The connection request could not be verified. Please try again.",
	"missing_verifier":         "The connection session expired. Please start over.",
	"callback_error":           "Something went wrong while completing the connection. Please try again.",
	"token_exchange_failed":    "The platform rejected the connection. Please try again.",
	"get_pages_failed":         "We could not load your pages from the platform. Please try again.",
	"no_pages_found":           "No pages were found on your account. Create a page and try again.",
	"get_account_failed":       "We could not load your account details from the platform. Please try again.",
	"no_account_found":         "No business account was found. Check your platform settings and try again.",
	"save_failed":              "The connection succeeded but could not be saved. Please try again.",
	"config_missing":           "This platform is not configured yet. Please contact support.",
	"insufficient_permissions": "The connection is missing required permissions. Please reconnect and approve all requested permissions.",
}

// MessageForOAuthError translates a callback error code into a user-facing
// message. Unknown codes fall back to a generic message, except codes that
// mention the workspace, which all collapse to the workspace-initializing
// message regardless of exact wording.
func MessageForOAuthError(code string) string {
	if msg, ok := oauthErrorMessages[code]; ok {
		return msg
	}
	if strings.Contains(strings.ToLower(code), "workspace") {
		return workspaceInitializing
	}
	return genericConnectionError
}
