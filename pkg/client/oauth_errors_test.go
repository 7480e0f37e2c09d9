package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEveryDocumentedCodeMapsToItsMessage(t *testing.T) {
	for code, want := range oauthErrorMessages {
		assert.Equal(t, want, MessageForOAuthError(code), "code %s", code)
	}
}

func TestUnknownCodeFallsBackToGenericMessage(t *testing.T) {
	assert.Equal(t, genericConnectionError, MessageForOAuthError("quantum_entanglement_failure"))
	assert.Equal(t, genericConnectionError, MessageForOAuthError(""))
}

func TestWorkspaceCodesCollapseToInitializingMessage(t *testing.T) {
	// Unknown codes that mention the workspace are treated as provisioning
	// lag regardless of exact wording.
	assert.Equal(t, workspaceInitializing, MessageForOAuthError("workspace_migration_pending"))
	assert.Equal(t, workspaceInitializing, MessageForOAuthError("WORKSPACE_LOCKED"))
	assert.Equal(t, workspaceInitializing, MessageForOAuthError("no_workspace"))
	assert.Equal(t, workspaceInitializing, MessageForOAuthError("NO_WORKSPACE"))
	assert.Equal(t, workspaceInitializing, MessageForOAuthError("WORKSPACE_INIT_ERROR"))
}
