// Package uuid wraps github.com/google/uuid with the id flavours the product API
// uses: random v4 ids for client identifiers and name-derived v5 ids for salted
// idempotence identifiers.
package uuid

import (
	"github.com/google/uuid"
)

// UUID represents a UUID, aliased from github.com/google/uuid.UUID
type UUID = uuid.UUID

// Nil is the zero UUID value.
var Nil = uuid.Nil

// SaltNamespace is the namespace all salted ids are derived in.
var SaltNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("prismctl/idempotence_identifiers/salted"))

// New returns a new random UUIDv4. Panics if UUID generation fails.
func New() UUID {
	return uuid.New()
}

// NewString returns a new random UUIDv4 in canonical string form.
func NewString() string {
	return uuid.NewString()
}

// Parse parses a UUID string into a UUID value.
func Parse(s string) (UUID, error) {
	return uuid.Parse(s)
}

// MustParse parses a UUID string and panics if the string is not a valid UUID.
func MustParse(s string) UUID {
	return uuid.MustParse(s)
}

// IsValid reports whether s is a well formed UUID.
func IsValid(s string) bool {
	return uuid.Validate(s) == nil
}

// Salted derives one v5 id per name. The same name always yields the same id,
// so identical name lists yield identical id lists.
func Salted(names []string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		out = append(out, uuid.NewSHA1(SaltNamespace, []byte(n)).String())
	}
	return out
}
