// Package model defines the data structures shared by the streaming search
// client and the crawl service.
//
// This package contains the following main types:
//   - Item: A discovered image reference, identified by its location URL
//   - Kind: The category tag of an item (LOGO, GIF, FAVICON, ORDINARY)
//   - Level: The crawl depth of a group, or a display label for special buckets
//   - GroupPayload: The wire form of one group inside a streamed record
//   - Record: One decoded NDJSON line, mapping group keys to payloads
//   - Group: A named bucket of items held by the aggregate store
//
// Models live in their own package so that the decoder, classifier, store,
// presentation and crawl service can share them without import cycles.
//
// All wire types round-trip through encoding/json. Fields of an item that
// this package does not know about are preserved verbatim.
package model
