package database

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a requested document does not exist. Callers
// must treat it as a valid empty outcome for reads; it is never used for
// transport failures.
var ErrNotFound = errors.New("document not found")

// Collection names used across the platform.
const (
	CollectionInstitutions = "institutions"
	CollectionUsers        = "users"
	CollectionAccounts     = "accounts"
	CollectionPosts        = "posts"
	CollectionMessages     = "messages"
	CollectionRequests     = "requests"
)

// FilterOp is the kind of predicate a Filter applies.
type FilterOp string

const (
	// OpEq matches documents whose field equals the value exactly.
	OpEq FilterOp = "eq"
	// OpContains matches documents whose array-valued field contains the value.
	OpContains FilterOp = "contains"
)

// Filter is one equality or array-membership predicate on a document field.
type Filter struct {
	Field string
	Op    FilterOp
	Value interface{}
}

// Eq builds an exact-match filter on a field.
func Eq(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpEq, Value: value}
}

// Contains builds an array-membership filter on an array-valued field.
func Contains(field string, value interface{}) Filter {
	return Filter{Field: field, Op: OpContains, Value: value}
}

// Storage is the persistence adapter all façade services are written against.
// Implementations are a remote document store (Postgres JSONB, GORMStore) and
// a local serialized-collection store (FileStore); both honor the same
// contract. Result ordering is NOT guaranteed; callers sort.
type Storage interface {
	// Lifecycle
	Init() error
	Close() error
	HealthCheck() error

	// Get fetches one document by id into dest (a struct pointer).
	// Returns ErrNotFound when the document is absent.
	Get(ctx context.Context, collection, id string, dest interface{}) error

	// List fetches all documents matching every filter into dest (a pointer
	// to a slice). No filters means a full-collection fetch. A collection
	// with no matches yields an empty slice, not an error.
	List(ctx context.Context, collection string, dest interface{}, filters ...Filter) error

	// Put upserts the document under the given id.
	Put(ctx context.Context, collection, id string, doc interface{}) error

	// Delete removes one document by id. Deleting an absent document is not
	// an error.
	Delete(ctx context.Context, collection, id string) error

	// DeleteWhere removes every document matching all filters.
	DeleteWhere(ctx context.Context, collection string, filters ...Filter) error

	// Mutate applies fn to one document under a per-document write lock: fn
	// receives the current raw JSON document and returns the replacement
	// value. Returns ErrNotFound when the document is absent. This is the
	// primitive for read-modify-write updates (like toggling) so concurrent
	// callers cannot lose updates.
	Mutate(ctx context.Context, collection, id string, fn func(raw []byte) (interface{}, error)) error

	// RunInTransaction executes fn against a transactional view of the
	// store; all writes commit together or not at all.
	RunInTransaction(ctx context.Context, fn func(tx Storage) error) error
}
