// Package api defines the wire types for the glatt batch-normalization
// service: records, batch options, run requests and stored runs, plus the
// structured error format shared by all transports.
//
// A Record is the unit the batch runner operates on. Its JSON payload
// carries the response document in a named field; binary attachments and
// paired-item lineage ride along untouched.
package api
