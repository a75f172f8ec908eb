// Package endpoints defines every HTTP route of the Quill server,
// each paired with the CLI command that calls it.
package endpoints

import (
	"github.com/quilldocs/quill/internal/api"
)

// All returns all endpoint instances.
func All() []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},

		// Document lifecycle
		&UploadEndpoint{},
		&GenerateEndpoint{},
		&ListDocumentsEndpoint{},
		&GetDocumentEndpoint{},
		&DeleteDocumentEndpoint{},

		// Regeneration and manual edits
		&RegenerateSectionEndpoint{},
		&RegeneratePageEndpoint{},
		&RegenerateDocumentEndpoint{},
		&SaveSectionEndpoint{},
		&SavePageEndpoint{},

		// Export
		&ExportEndpoint{},

		// Unit configuration
		&GetConfigEndpoint{},
		&PutConfigEndpoint{},
	}
}
