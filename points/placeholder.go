package points

import "hash/fnv"

// Placeholder ids stand in for subjects picked by label before any numeric
// id is known for them. They are derived deterministically from the label
// so repeated picks of the same label collapse onto one ledger row, and
// they live in a reserved negative range far below any id the platform
// issues, so a later real id can never collide with them.
const (
	placeholderOffset = int64(1) << 52
	placeholderSpan   = uint64(1) << 51
)

// PlaceholderID derives the stable placeholder id for a label.
func PlaceholderID(label string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(label))
	return -placeholderOffset - int64(h.Sum64()%placeholderSpan)
}

// IsPlaceholderID reports whether id belongs to the reserved range.
func IsPlaceholderID(id int64) bool {
	return id <= -placeholderOffset
}
