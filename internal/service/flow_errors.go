package service

import "fmt"

// OAuth flow error codes. These travel to the frontend as the oauth_error
// query parameter on the redirect, so the UI can show a specific message.
const (
	CodeOAuthUnauthorized       = "oauth_unauthorized"
	CodeNoWorkspace             = "no_workspace"
	CodeWorkspaceInitError      = "WORKSPACE_INIT_ERROR"
	CodeWorkspaceNotReady       = "WORKSPACE_NOT_READY"
	CodeUserDenied              = "user_denied"
	CodeMissingParams           = "missing_params"
	CodeCSRFCheckFailed         = "csrf_check_failed"
	CodeMissingVerifier         = "missing_verifier"
	CodeCallbackError           = "callback_error"
	CodeTokenExchangeFailed     = "token_exchange_failed"
	CodeGetPagesFailed          = "get_pages_failed"
	CodeNoPagesFound            = "no_pages_found"
	CodeGetAccountFailed        = "get_account_failed"
	CodeNoAccountFound          = "no_account_found"
	CodeSaveFailed              = "save_failed"
	CodeConfigMissing           = "config_missing"
	CodeInsufficientPermissions = "insufficient_permissions"
)

// FlowError carries a structured code through the OAuth callback so the
// handler can redirect with oauth_error=<code> instead of a prose message.
type FlowError struct {
	Code string
	Err  error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

func flowError(code string, err error) *FlowError {
	return &FlowError{Code: code, Err: err}
}

// FlowErrorCode extracts the structured code, falling back to callback_error
// for anything untyped.
func FlowErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if fe, ok := err.(*FlowError); ok {
		return fe.Code
	}
	return CodeCallbackError
}
