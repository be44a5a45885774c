package graph

import "errors"

// Sentinel errors for classification and resolution.
// Use errors.Is() to check for them through wrapping.
var (
	// ErrMissingID indicates a node-shaped STIX object with no "id" field.
	// Such an object cannot be keyed and must be skipped; the error is fatal
	// to the single object, not to the ingestion run.
	ErrMissingID = errors.New("stix object missing id")

	// ErrMissingRef indicates a STIX relationship with no source_ref or
	// target_ref. The relationship cannot be resolved into an edge.
	ErrMissingRef = errors.New("stix relationship missing source_ref or target_ref")

	// ErrInvalidUpsert indicates a node or edge upsert with empty label,
	// key, or type fields. Upserts built by Classify and Resolve are always
	// valid; this guards hand-built upserts handed directly to a Store.
	ErrInvalidUpsert = errors.New("invalid upsert")
)
