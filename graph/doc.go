// Package graph transforms STIX objects from the MITRE ATT&CK bundle into
// labeled property-graph write intents.
//
// The package has three responsibilities:
//
//   - Classify maps a node-shaped STIX object to one of seven node labels
//     (Technique, Group, Tool, Mitigation, Tactic, Campaign, Malware) and
//     materializes its upsert, including the Tactic stubs and
//     REQUIRES_TACTIC edges implied by a technique's kill-chain phases.
//   - Resolve maps a STIX relationship object to one or more typed edge
//     upserts. STIX relationships reference their endpoints by opaque IDs
//     with no declared type, so resolution dispatches on the ID's type
//     prefix using ResolutionTable.
//   - Derivation helpers: MitreID extracts the canonical short identifier
//     (e.g. "T1059") from an object's external references, and TacticOrder
//     ranks tactic shortnames along the attack lifecycle.
//
// The package emits intent only; a Store implementation (see the store
// package) is responsible for durable, idempotent application. Node upserts
// carry an explicit merge policy: Properties are overwritten on every
// application, OnCreate values are set only when the node is first created.
// This makes partial "stub" upserts safe regardless of whether the full
// object is processed before or after the stub.
//
// Edges resolve their endpoints by identity key, so every node upsert must
// be applied before any edge upsert. Callers enforce this two-pass ordering;
// the ingest package provides a pipeline that does.
package graph
