// Package pipeline runs the per-delivery stages of a search operation.
//
// Every time the transport delivers a new cumulative buffer, the operation
// runs a Pipeline over a Delivery: the buffer is decoded into records, the
// records are classified, the placements are merged into the aggregate,
// and a snapshot is published if anything changed. Steps run synchronously
// and in order, so merges apply strictly in delivery order.
//
// Steps share state through the Delivery they receive. Each step reads
// what earlier steps produced and adds its own output.
package pipeline
