// Package idgen generates the engine's lineage identifiers.
package idgen

import "github.com/google/uuid"

// RowID generates a distinct UUIDv7 string for a freshly injected
// `_row_id` system column (§3, §8 invariant 1). UUIDv7 embeds a millisecond
// timestamp so ids sort roughly by insertion order, which the teacher's own
// corpus favors over the fully random v4 for audit-trail style columns.
func RowID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}
