package model

import "github.com/m-mizutani/goerr/v2"

// Error tags form the closed taxonomy of failure kinds surfaced to callers.
// Anything without a tag is treated as an unanticipated internal failure.
var (
	// ErrTagInvalidInput marks a rejected input. Raised before any side effect.
	ErrTagInvalidInput = goerr.NewTag("invalid_input")

	// ErrTagNotFound marks a reference to an absent memory. A normal,
	// non-fatal outcome.
	ErrTagNotFound = goerr.NewTag("not_found")

	// ErrTagStore marks a relational store I/O failure, including the
	// zero-rows-affected case on delete.
	ErrTagStore = goerr.NewTag("store_failure")

	// ErrTagIndex marks a vector index I/O failure.
	ErrTagIndex = goerr.NewTag("index_failure")

	// ErrTagEmbedding marks an embedding service failure or an unusable
	// (empty, malformed) embedding response.
	ErrTagEmbedding = goerr.NewTag("embedding_failure")
)

// IsClientError reports whether err is correctable by the caller, as opposed
// to a server-side failure.
func IsClientError(err error) bool {
	return goerr.HasTag(err, ErrTagInvalidInput) || goerr.HasTag(err, ErrTagNotFound)
}
