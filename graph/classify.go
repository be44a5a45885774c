package graph

import (
	"fmt"

	"github.com/zero-day-ai/attackgraph/stix"
)

// nodeLabels maps recognized STIX types to graph node labels. Types outside
// this table (marking definitions, identities, data sources, ...) are not
// part of the graph and classify to a skip.
var nodeLabels = map[string]Label{
	"attack-pattern":   LabelTechnique,
	"intrusion-set":    LabelGroup,
	"tool":             LabelTool,
	"course-of-action": LabelMitigation,
	"x-mitre-tactic":   LabelTactic,
	"campaign":         LabelCampaign,
	"malware":          LabelMalware,
}

// NodeLabelFor returns the graph label for a STIX object type, and whether
// the type is part of the graph vocabulary.
func NodeLabelFor(stixType string) (Label, bool) {
	label, ok := nodeLabels[stixType]
	return label, ok
}

// Intent is the ordered set of write operations one STIX object implies:
// node upserts first (the primary node, then any tactic stubs), then edge
// upserts. Stores must apply Nodes before Edges.
type Intent struct {
	Nodes []NodeUpsert
	Edges []EdgeUpsert
}

// Classify determines whether a STIX object denotes a graph node and, if
// so, materializes its upsert intent. The second return value is false when
// the object's type is outside the graph vocabulary; that is a deliberate
// skip, not an error. An error is returned only for objects that cannot be
// keyed (missing id).
func Classify(obj stix.Object) (Intent, bool, error) {
	label, ok := nodeLabels[obj.Type()]
	if !ok {
		return Intent{}, false, nil
	}

	id := obj.ID()
	if id == "" {
		return Intent{}, false, fmt.Errorf("%w: type %q", ErrMissingID, obj.Type())
	}

	switch label {
	case LabelTechnique:
		return classifyTechnique(obj, id), true, nil
	case LabelTactic:
		return classifyTactic(obj, id), true, nil
	case LabelMitigation:
		return Intent{Nodes: []NodeUpsert{baseNode(label, id, obj)}}, true, nil
	default:
		// Group, Tool, Campaign, Malware additionally carry aliases.
		node := baseNode(label, id, obj).WithProperty("aliases", obj.StringList("aliases"))
		return Intent{Nodes: []NodeUpsert{node}}, true, nil
	}
}

// baseNode builds the upsert shared by every stix_id-keyed label: identity
// plus mitre_id, name, and description. Missing fields default to empty
// values, never an error.
func baseNode(label Label, id string, obj stix.Object) NodeUpsert {
	return NewNodeUpsert(label, KeyStixID, id).
		WithProperty("mitre_id", MitreID(obj)).
		WithProperty("name", obj.Name()).
		WithProperty("description", obj.Description())
}

// classifyTechnique materializes a Technique node plus, per kill-chain
// phase, a stub Tactic node and a REQUIRES_TACTIC edge. Kill-chain metadata
// (phase shortnames, their ranks, and the minimum rank) is derived here so
// techniques can be sorted by earliest attack-lifecycle stage.
func classifyTechnique(obj stix.Object, id string) Intent {
	phases := obj.KillChainPhases()

	tacticIDs := []string{}
	tacticOrders := []int{}
	minOrder := UnrankedOrder
	for _, phase := range phases {
		if phase.PhaseName == "" {
			continue
		}
		order := TacticOrder(phase.PhaseName)
		tacticIDs = append(tacticIDs, phase.PhaseName)
		tacticOrders = append(tacticOrders, order)
		if order < minOrder {
			minOrder = order
		}
	}

	technique := baseNode(LabelTechnique, id, obj).
		WithProperty("platforms", obj.StringList("x_mitre_platforms")).
		WithProperty("parent_tactic_id", tacticIDs).
		WithProperty("tactic_orders", tacticOrders).
		WithProperty("min_tactic_order", minOrder)

	intent := Intent{Nodes: []NodeUpsert{technique}}
	for _, shortname := range tacticIDs {
		stub := NewNodeUpsert(LabelTactic, KeyShortname, shortname).
			WithOnCreate("name", shortname)
		edge := EdgeUpsert{
			Type:          EdgeRequiresTactic,
			SourceLabel:   LabelTechnique,
			SourceKeyName: KeyStixID,
			SourceKey:     id,
			TargetLabel:   LabelTactic,
			TargetKeyName: KeyShortname,
			TargetKey:     shortname,
		}
		intent.Nodes = append(intent.Nodes, stub)
		intent.Edges = append(intent.Edges, edge)
	}
	return intent
}

// classifyTactic materializes a full Tactic node. Tactics merge on their
// shortname so stubs created from kill-chain phases converge with the full
// object; a tactic without a shortname falls back to stix_id keying and
// carries no shortname property at all. Writing shortname="" would make
// every shortname-less tactic collide under the Tactic.shortname uniqueness
// constraint, since the empty string is a value, not null.
func classifyTactic(obj stix.Object, id string) Intent {
	shortname := obj.String("x_mitre_shortname")

	keyName, keyValue := KeyShortname, shortname
	if shortname == "" {
		keyName, keyValue = KeyStixID, id
	}

	tactic := NewNodeUpsert(LabelTactic, keyName, keyValue).
		WithProperty("stix_id", id).
		WithProperty("mitre_id", MitreID(obj)).
		WithProperty("name", obj.Name()).
		WithProperty("description", obj.Description())
	if shortname != "" {
		tactic = tactic.
			WithProperty("shortname", shortname).
			WithProperty("kill_chain_order", TacticOrder(shortname))
	}
	return Intent{Nodes: []NodeUpsert{tactic}}
}
