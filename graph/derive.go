package graph

import "github.com/zero-day-ai/attackgraph/stix"

// mitreSource is the external-reference source tag of the ATT&CK catalog.
const mitreSource = "mitre-attack"

// MitreID extracts the canonical ATT&CK short identifier (e.g. "T1059",
// "G0016") from an object's external references: the external_id of the
// first reference whose source is the ATT&CK catalog and whose external_id
// is non-empty. Returns "" when no such reference exists.
//
// This is a first-match rule. If a bundle ever lists multiple ATT&CK
// references the first one wins deterministically. Objects carrying a
// ready-made x_mitre_id field are ignored in favor of this derivation, so
// the two can never disagree.
func MitreID(obj stix.Object) string {
	for _, ref := range obj.ExternalReferences() {
		if ref.SourceName == mitreSource && ref.ExternalID != "" {
			return ref.ExternalID
		}
	}
	return ""
}
