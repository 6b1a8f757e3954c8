// Package report writes the final result of a search.
//
// This package contains writers for different output formats:
//   - TextWriter: plain text for terminal display
//   - MarkdownWriter: Markdown with a mermaid chart of image kinds
//   - JSONWriter: structured JSON for tool integration
//
// Writers implement the Writer interface, so they can be composed with
// MultiWriter for multi-format output.
package report
