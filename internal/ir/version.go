package ir

// Version constants for serialized records.
const (
	// IRVersion is the record schema version.
	IRVersion = "1"

	// EngineVersion is the forward-model engine version.
	EngineVersion = "0.1.0"
)
