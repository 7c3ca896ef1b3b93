package schema

import "context"

// DB is the storage accessor handed to verb handlers. The engine's store
// satisfies this interface; handlers mutate records through it directly.
type DB interface {
	// Create inserts a record, overwriting any record with the same id.
	Create(ctx context.Context, noun string, record map[string]any) (map[string]any, error)

	// Get retrieves a record by id. The second return is false on a miss.
	Get(ctx context.Context, noun, id string) (map[string]any, bool)

	// Update merges partial fields over an existing record.
	Update(ctx context.Context, noun, id string, partial map[string]any) (map[string]any, bool)

	// Delete removes a record, reporting whether it existed.
	Delete(ctx context.Context, noun, id string) bool
}

// Call carries the invocation context for a verb handler.
type Call struct {
	// ID is the target record id from the request path.
	ID string

	// Input is the request body passed to the verb.
	Input map[string]any

	// DB is the shared storage accessor.
	DB DB

	// APIKey is the caller's credential, when one was presented.
	APIKey string
}

// VerbFunc is a custom operation attached to a noun. Handlers mutate
// storage through call.DB; the engine re-reads the record afterward and
// returns the post-handler state to the client.
type VerbFunc func(ctx context.Context, call Call) error

// Verbs maps noun name -> verb name -> handler.
type Verbs map[string]map[string]VerbFunc

// crudNames are the implicit operations every noun receives; verbs may not
// shadow them.
var crudNames = map[string]bool{
	"create": true,
	"get":    true,
	"read":   true,
	"update": true,
	"delete": true,
	"list":   true,
}

// IsCRUDName reports whether a name collides with an implicit CRUD operation.
func IsCRUDName(name string) bool {
	return crudNames[name]
}
