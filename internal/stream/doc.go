// Package stream decodes the newline-delimited record stream produced by the
// crawl service.
//
// The transport hands the decoder the cumulative text received so far, never
// a single chunk. Chunk boundaries fall anywhere, so the last line of the
// buffer is often a truncated record. Such a fragment is left unconsumed and
// decoded on a later call, once the grown buffer contains the rest of it.
// Complete lines that still fail to parse are dropped as noise. Decoding
// never fails.
//
// # Usage
//
//	d := stream.NewDecoder()
//	for text := range deliveries {
//	    for _, rec := range d.Feed(text) {
//	        // classify and merge rec
//	    }
//	}
package stream
