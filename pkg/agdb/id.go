package agdb

// ID identifies a database element either by its numeric graph id or by
// an alias bound to a node, the Go rendering of the original's QueryId.
type ID struct {
	value   int64
	alias   string
	isAlias bool
}

// FromValue builds an ID addressing a node or edge directly by its
// signed graph index (positive node, negative edge).
func FromValue(value int64) ID { return ID{value: value} }

// FromAlias builds an ID addressing a node through an alias.
func FromAlias(alias string) ID { return ID{alias: alias, isAlias: true} }
