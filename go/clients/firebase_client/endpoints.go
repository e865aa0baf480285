package firebase_client

const (
	// Every node is addressed as <path>.json
	JsonSuffix = ".json"

	// Query parameters
	AuthParam = "auth"

	// Headers
	JsonHeader      = "Content-Type"
	JsonContentType = "application/json"

	// Body returned for a node that does not exist
	NullBody = "null"
)
