package graph

import (
	"fmt"
	"strings"

	"github.com/zero-day-ai/attackgraph/stix"
)

// STIX ID type prefixes used for relationship endpoint dispatch.
const (
	prefixIntrusionSet = "intrusion-set--"
	prefixTool         = "tool--"
	prefixCampaign     = "campaign--"
	prefixMalware      = "malware--"
)

// EdgePattern is one candidate edge a resolution rule emits: the labels to
// match the endpoints against and the edge type to merge.
type EdgePattern struct {
	Source Label
	Target Label
	Type   EdgeType
}

// Rule matches a STIX relationship by its relationship_type and, optionally,
// by the type prefix of its source_ref. An empty SourcePrefix matches any
// source.
type Rule struct {
	RelationshipType string
	SourcePrefix     string
	Edges            []EdgePattern
}

// ResolutionTable maps STIX relationships to candidate edges. STIX does not
// declare endpoint types, so the source_ref's ID prefix is the only
// dispatch signal; "uses" in particular is overloaded across four distinct
// source kinds. The first matching rule wins.
//
// The intrusion-set "uses" rule lists three candidate targets and all three
// are attempted unconditionally. Node keys are globally unique per label, so
// at most one candidate matches and the store treats the others as no-ops.
// This trades two no-op writes for not needing a second dispatch table on
// target_ref.
var ResolutionTable = []Rule{
	{
		RelationshipType: "uses",
		SourcePrefix:     prefixIntrusionSet,
		Edges: []EdgePattern{
			{Source: LabelGroup, Target: LabelTechnique, Type: EdgeUses},
			{Source: LabelGroup, Target: LabelTool, Type: EdgeUses},
			{Source: LabelGroup, Target: LabelMalware, Type: EdgeUses},
		},
	},
	{
		RelationshipType: "uses",
		SourcePrefix:     prefixTool,
		Edges:            []EdgePattern{{Source: LabelTool, Target: LabelTechnique, Type: EdgeUses}},
	},
	{
		RelationshipType: "uses",
		SourcePrefix:     prefixCampaign,
		Edges:            []EdgePattern{{Source: LabelCampaign, Target: LabelTechnique, Type: EdgeUses}},
	},
	{
		RelationshipType: "uses",
		SourcePrefix:     prefixMalware,
		Edges:            []EdgePattern{{Source: LabelMalware, Target: LabelTechnique, Type: EdgeUses}},
	},
	{
		RelationshipType: "mitigates",
		Edges:            []EdgePattern{{Source: LabelMitigation, Target: LabelTechnique, Type: EdgeMitigates}},
	},
	{
		RelationshipType: "subtechnique-of",
		Edges:            []EdgePattern{{Source: LabelTechnique, Target: LabelTechnique, Type: EdgeSubtechniqueOf}},
	},
	{
		RelationshipType: "attributed-to",
		Edges:            []EdgePattern{{Source: LabelCampaign, Target: LabelGroup, Type: EdgeAttributedTo}},
	},
}

// Resolve maps a STIX relationship object to the edge upserts it implies.
// Relationships whose relationship_type (or source prefix, for "uses") has
// no matching rule resolve to no edges; that is a deliberate skip, not an
// error. An error is returned only for relationships missing source_ref or
// target_ref.
func Resolve(rel stix.Object) ([]EdgeUpsert, error) {
	relType := rel.String("relationship_type")
	sourceRef := rel.String("source_ref")
	targetRef := rel.String("target_ref")

	if sourceRef == "" || targetRef == "" {
		return nil, fmt.Errorf("%w: relationship_type %q", ErrMissingRef, relType)
	}

	for _, rule := range ResolutionTable {
		if rule.RelationshipType != relType {
			continue
		}
		if rule.SourcePrefix != "" && !strings.HasPrefix(sourceRef, rule.SourcePrefix) {
			continue
		}
		edges := make([]EdgeUpsert, 0, len(rule.Edges))
		for _, pattern := range rule.Edges {
			edges = append(edges, NewEdgeUpsert(pattern.Type, pattern.Source, sourceRef, pattern.Target, targetRef))
		}
		return edges, nil
	}
	return nil, nil
}
