// Package normalize repairs the shape of Chat Completions response
// documents. Backends disagree on how they encode "no tool calls": some
// omit the field, some send an explicit null. Normalize coerces the
// well-known optional message fields (tool_calls, function_call,
// annotations) to empty collections of the expected type so consumers
// never have to branch on null.
//
// Normalize is pure: it deep-copies its input, holds no state, and is
// safe for concurrent use.
package normalize
