package graph

import "fmt"

// EdgeType is a directed, typed relation between two nodes.
type EdgeType string

// The five edge types of the threat-intelligence graph.
const (
	EdgeRequiresTactic EdgeType = "REQUIRES_TACTIC" // Technique -> Tactic
	EdgeUses           EdgeType = "USES"            // Group|Tool|Campaign|Malware -> Technique|Tool|Malware
	EdgeMitigates      EdgeType = "MITIGATES"       // Mitigation -> Technique
	EdgeSubtechniqueOf EdgeType = "SUBTECHNIQUE_OF" // Technique -> Technique
	EdgeAttributedTo   EdgeType = "ATTRIBUTED_TO"   // Campaign -> Group
)

// EdgeUpsert is the intent to ensure a typed edge exists between two nodes,
// each addressed by label and identity key. Edges carry no properties;
// identity is the (source key, type, target key) triple, so re-application
// never creates a parallel duplicate.
//
// Applying an edge upsert whose endpoints do not both exist is a silent
// no-op. Callers must finish the node pass first or edges are dropped.
type EdgeUpsert struct {
	Type EdgeType

	SourceLabel   Label
	SourceKeyName string
	SourceKey     string

	TargetLabel   Label
	TargetKeyName string
	TargetKey     string
}

// NewEdgeUpsert creates an edge upsert between two stix_id-keyed nodes.
func NewEdgeUpsert(edgeType EdgeType, sourceLabel Label, sourceKey string, targetLabel Label, targetKey string) EdgeUpsert {
	return EdgeUpsert{
		Type:          edgeType,
		SourceLabel:   sourceLabel,
		SourceKeyName: KeyStixID,
		SourceKey:     sourceKey,
		TargetLabel:   targetLabel,
		TargetKeyName: KeyStixID,
		TargetKey:     targetKey,
	}
}

// Validate checks that the upsert can be applied.
func (e EdgeUpsert) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("%w: edge type is empty", ErrInvalidUpsert)
	}
	if e.SourceLabel == "" || e.SourceKeyName == "" || e.SourceKey == "" {
		return fmt.Errorf("%w: edge source endpoint is incomplete", ErrInvalidUpsert)
	}
	if e.TargetLabel == "" || e.TargetKeyName == "" || e.TargetKey == "" {
		return fmt.Errorf("%w: edge target endpoint is incomplete", ErrInvalidUpsert)
	}
	return nil
}
