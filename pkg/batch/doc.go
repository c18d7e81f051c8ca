// Package batch executes normalization runs over record sequences. It is
// the host layer around pkg/normalize: per record it extracts the response
// document from a named field, parses string payloads as JSON, invokes the
// normalizer, and writes the result into the output field while preserving
// every other part of the record.
//
// Strict mode turns structural problems (missing field, unparseable
// string, malformed document) into errors that abort the whole run with
// the offending record index attached. Lenient mode passes the affected
// record through unchanged instead.
package batch
