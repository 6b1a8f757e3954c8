// Package transport issues the search request to the crawl service and
// streams the response back as events.
//
// The response body is read incrementally. After every read the client
// emits a Delivery carrying the whole text received so far, not only the
// new bytes. The stream ends with exactly one Terminal event, or with a
// single Failure if the connection broke. A non-success status produces
// only a Terminal event carrying a bounded prefix of the body.
package transport
