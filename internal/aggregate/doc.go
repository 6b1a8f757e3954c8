// Package aggregate holds the accumulated result set of one search operation.
//
// A Store maps group keys to groups. It grows by merging classified
// placements and never loses an item until Reset. Items are merged
// last-writer-wins by location URL, so a later, refined copy of an item
// replaces the earlier one. Special buckets are keyed the same way, so a
// logo seen on many pages is stored once.
//
// A Store belongs to a single operation and is not safe for concurrent use.
// Presenters receive a Snapshot, a deep copy that stays valid after further
// merges.
package aggregate
