// Package validation implements filesystem-path and tool-argument
// sanitization for MCP providers backed by a local filesystem or
// similarly sensitive resource tree.
package validation

// MaxStringLength is the maximum length of any string argument value
// (1MB). Strings longer than this are rejected rather than silently
// truncated, since truncation of a path or identifier can itself change
// its meaning.
const MaxStringLength = 1048576

// MaxPathLength bounds the byte length of the path passed to ValidatePath,
// checked before any decoding or normalization.
const MaxPathLength = 4096

// maxNormalizeIterations bounds the decode/normalize fixed-point loop.
// Pathological inputs (e.g. many layers of percent-encoding) stop being
// re-decoded after this many passes and are rejected outright.
const maxNormalizeIterations = 8
