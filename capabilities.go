package agentcmd

// StorageShape describes how a provider persists session transcripts.
type StorageShape string

const (
	// StorageStreaming: append-only newline-delimited JSON, one record
	// per line.
	StorageStreaming StorageShape = "streaming"

	// StorageBatch: one complete JSON document per session.
	StorageBatch StorageShape = "batch"
)

// Capabilities is the static per-provider feature table. The engine
// validates requests against it before spawning; unsupported features are
// dropped, not errored (see ExecutionRequest.Resume).
type Capabilities struct {
	// Resume: the provider can resume a session by id.
	Resume bool

	// Continue: the provider can continue its most recent session.
	Continue bool

	// PermissionModes: the provider accepts a permission/approval mode flag.
	PermissionModes bool

	// Images: the provider accepts inline image attachments.
	Images bool

	// SessionStorage is the on-disk transcript shape.
	SessionStorage StorageShape

	// MintsSessionID: the provider generates its own session id, which
	// supersedes any caller-supplied one in the final result. When false
	// the engine generates an id up front and passes it to the provider.
	MintsSessionID bool
}

// capabilityMatrix is the static table for the built-in providers.
var capabilityMatrix = map[Provider]Capabilities{
	ProviderClaude: {
		Resume:          true,
		Continue:        true,
		PermissionModes: true,
		Images:          true,
		SessionStorage:  StorageStreaming,
		MintsSessionID:  false,
	},
	ProviderCodex: {
		Resume:          true,
		Continue:        true,
		PermissionModes: false,
		Images:          false,
		SessionStorage:  StorageStreaming,
		MintsSessionID:  true,
	},
	ProviderGemini: {
		Resume:          false,
		Continue:        false,
		PermissionModes: true,
		Images:          false,
		SessionStorage:  StorageBatch,
		MintsSessionID:  true,
	},
}

// CapabilitiesFor returns the capability matrix entry for a built-in
// provider. ok is false for unknown providers.
func CapabilitiesFor(p Provider) (Capabilities, bool) {
	c, ok := capabilityMatrix[p]
	return c, ok
}
