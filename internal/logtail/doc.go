// Package logtail reads the tail of ordersync's JSON log file for display.
//
// # Overview
//
// The dashboard owns the terminal, so logs go to a file. This package brings
// the interesting part of that file back on screen: the last N lines,
// optionally only those for one order, parsed into Entry values and rendered
// as compact one-line summaries.
//
// # Reading Log Files
//
// Read and ReadFunc keep a ring buffer of maxLines entries while scanning,
// so memory stays bounded by the tail size regardless of file length.
// Lines up to 1MB are supported. A missing file is not an error; it simply
// has no lines yet.
//
// # Filtering
//
// ForOrder matches on the serialized `"order_id":"<id>"` pair instead of
// decoding every line. Ids are JSON-quoted first, so "1" does not match
// "10".
//
// # Parsing
//
// Parse understands the fields written by internal/logging: ts, level, msg,
// order_id. caller, logger and stacktrace are dropped; everything else lands
// in Fields. Non-JSON lines (a panic trace, say) are kept verbatim in Raw.
package logtail
