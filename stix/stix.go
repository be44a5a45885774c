// Package stix models the subset of STIX 2.x carried by the MITRE ATT&CK
// enterprise bundle: a flat collection of typed JSON objects plus the
// machinery to obtain one (local file, HTTP download, optional Redis cache).
//
// Objects are kept as decoded maps rather than per-type structs because the
// bundle mixes many object types and downstream classification only needs a
// handful of well-known fields. Typed accessors on Object keep the map
// handling in one place.
package stix

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// RefSeparator splits a STIX ID into its type prefix and UUID suffix,
// e.g. "attack-pattern--7e150503-88e7-4861-866b-ff1ac82c4475".
const RefSeparator = "--"

// Object is a single decoded STIX object record. Field presence varies by
// type; accessors return zero values for absent or mistyped fields.
type Object map[string]any

// ID returns the object's STIX identifier, or "" if absent.
func (o Object) ID() string { return o.String("id") }

// Type returns the object's STIX type tag, or "" if absent.
func (o Object) Type() string { return o.String("type") }

// Name returns the object's display name, or "" if absent.
func (o Object) Name() string { return o.String("name") }

// Description returns the object's free-text description, or "" if absent.
func (o Object) Description() string { return o.String("description") }

// String returns the string value stored under key, or "" if the key is
// absent or holds a non-string value.
func (o Object) String(key string) string {
	s, _ := o[key].(string)
	return s
}

// StringList returns the list of strings stored under key. Non-string
// elements are dropped. Returns an empty (non-nil) slice when absent so the
// result is always safe to store as a graph property.
func (o Object) StringList(key string) []string {
	out := []string{}
	raw, _ := o[key].([]any)
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// ExternalReference is one entry of an object's external_references list.
type ExternalReference struct {
	SourceName string
	ExternalID string
	URL        string
}

// ExternalReferences returns the object's external_references entries in
// bundle order. Malformed entries are skipped.
func (o Object) ExternalReferences() []ExternalReference {
	raw, _ := o["external_references"].([]any)
	refs := make([]ExternalReference, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		ref := Object(m)
		refs = append(refs, ExternalReference{
			SourceName: ref.String("source_name"),
			ExternalID: ref.String("external_id"),
			URL:        ref.String("url"),
		})
	}
	return refs
}

// KillChainPhase is one entry of an object's kill_chain_phases list,
// linking a technique to a tactic shortname.
type KillChainPhase struct {
	KillChainName string
	PhaseName     string
}

// KillChainPhases returns the object's kill_chain_phases entries in bundle
// order. Malformed entries are skipped.
func (o Object) KillChainPhases() []KillChainPhase {
	raw, _ := o["kill_chain_phases"].([]any)
	phases := make([]KillChainPhase, 0, len(raw))
	for _, v := range raw {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		phase := Object(m)
		phases = append(phases, KillChainPhase{
			KillChainName: phase.String("kill_chain_name"),
			PhaseName:     phase.String("phase_name"),
		})
	}
	return phases
}

// TypePrefix returns the type portion of a STIX ID (the text before the
// first "--"), or "" if the ID does not contain the separator. This is the
// only type signal a STIX relationship carries for its endpoints.
func TypePrefix(stixID string) string {
	idx := strings.Index(stixID, RefSeparator)
	if idx < 0 {
		return ""
	}
	return stixID[:idx]
}

// WellFormedID reports whether a STIX ID has the canonical
// "<type>--<uuid>" shape. Ingestion does not reject ill-formed IDs (the
// graph keys on the verbatim string), but callers may want to flag them.
func WellFormedID(stixID string) bool {
	idx := strings.Index(stixID, RefSeparator)
	if idx <= 0 {
		return false
	}
	return uuid.Validate(stixID[idx+len(RefSeparator):]) == nil
}

// NewID generates a fresh STIX ID for the given object type. Used by test
// fixtures and tooling; real bundle objects arrive with IDs assigned.
func NewID(objType string) string {
	return objType + RefSeparator + uuid.NewString()
}

// Bundle is a STIX 2.x bundle: a container holding a flat, unordered list
// of object records.
type Bundle struct {
	Type        string   `json:"type"`
	ID          string   `json:"id"`
	SpecVersion string   `json:"spec_version,omitempty"`
	Objects     []Object `json:"objects"`
}

// ParseBundle decodes a raw STIX bundle document. It verifies the container
// type but performs no per-object validation; classification decides what
// each object means.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal STIX bundle: %w", err)
	}
	if b.Type != "bundle" {
		return nil, fmt.Errorf("expected STIX bundle, got type %q", b.Type)
	}
	return &b, nil
}

// Partition splits the bundle's objects into node-shaped objects and
// relationship objects. Relationships must be processed only after every
// node-shaped object has been ingested.
func (b *Bundle) Partition() (nodes, relationships []Object) {
	for _, obj := range b.Objects {
		if obj.Type() == "relationship" {
			relationships = append(relationships, obj)
		} else {
			nodes = append(nodes, obj)
		}
	}
	return nodes, relationships
}
