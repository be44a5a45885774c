package graph

import "fmt"

// Label is a node label in the property graph.
type Label string

// The seven node labels of the threat-intelligence graph.
const (
	LabelTechnique  Label = "Technique"
	LabelGroup      Label = "Group"
	LabelTool       Label = "Tool"
	LabelMitigation Label = "Mitigation"
	LabelTactic     Label = "Tactic"
	LabelCampaign   Label = "Campaign"
	LabelMalware    Label = "Malware"
)

// AllLabels lists every node label, in the order their uniqueness
// constraints are created.
var AllLabels = []Label{
	LabelTechnique,
	LabelGroup,
	LabelTool,
	LabelMitigation,
	LabelTactic,
	LabelCampaign,
	LabelMalware,
}

// Identity key property names.
const (
	// KeyStixID keys every label except Tactic by the verbatim STIX id.
	KeyStixID = "stix_id"

	// KeyShortname keys Tactic nodes. Tactics merge on their shortname so
	// that a stub created from a technique's kill-chain phase and the full
	// x-mitre-tactic object converge to the same node in either order.
	KeyShortname = "shortname"
)

// NodeUpsert is the intent to ensure a node exists with the given
// properties. It carries an explicit merge policy:
//
//   - Properties are applied on every upsert, overwriting prior values.
//   - OnCreate values are applied only when the node is first created and
//     never overwrite an existing value.
//
// Stub upserts (a Tactic first seen only as a kill-chain-phase label) put
// their fields in OnCreate so a previously ingested full object is never
// clobbered; full upserts put derived fields in Properties so re-ingestion
// refreshes them.
type NodeUpsert struct {
	Label      Label
	KeyName    string
	KeyValue   string
	Properties map[string]any
	OnCreate   map[string]any
}

// NewNodeUpsert creates a node upsert for the given label and identity key
// with empty property bags.
func NewNodeUpsert(label Label, keyName, keyValue string) NodeUpsert {
	return NodeUpsert{
		Label:      label,
		KeyName:    keyName,
		KeyValue:   keyValue,
		Properties: make(map[string]any),
		OnCreate:   make(map[string]any),
	}
}

// WithProperty sets an always-overwritten property and returns the upsert
// for chaining.
func (n NodeUpsert) WithProperty(key string, value any) NodeUpsert {
	n.Properties[key] = value
	return n
}

// WithOnCreate sets a create-only property and returns the upsert for
// chaining.
func (n NodeUpsert) WithOnCreate(key string, value any) NodeUpsert {
	n.OnCreate[key] = value
	return n
}

// Validate checks that the upsert can be applied.
func (n NodeUpsert) Validate() error {
	if n.Label == "" {
		return fmt.Errorf("%w: node label is empty", ErrInvalidUpsert)
	}
	if n.KeyName == "" || n.KeyValue == "" {
		return fmt.Errorf("%w: node identity key is empty", ErrInvalidUpsert)
	}
	return nil
}
