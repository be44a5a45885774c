package graph

import "sort"

// UnrankedOrder is the sentinel rank for tactics outside the kill-chain
// table and for techniques with no kill-chain phases. It sorts after every
// real stage.
const UnrankedOrder = 999

// killChainOrder ranks the 14 enterprise ATT&CK tactic shortnames along the
// attack lifecycle. Built once at init and never written afterwards.
var killChainOrder = map[string]int{
	"reconnaissance":       1,
	"resource-development": 2,
	"initial-access":       3,
	"execution":            4,
	"persistence":          5,
	"privilege-escalation": 6,
	"defense-evasion":      7,
	"credential-access":    8,
	"discovery":            9,
	"lateral-movement":     10,
	"collection":           11,
	"command-and-control":  12,
	"exfiltration":         13,
	"impact":               14,
}

// TacticOrder returns the kill-chain rank (1..14) for a tactic shortname,
// or UnrankedOrder if the shortname is not in the table.
func TacticOrder(shortname string) int {
	if order, ok := killChainOrder[shortname]; ok {
		return order
	}
	return UnrankedOrder
}

// TacticShortnames returns all ranked tactic shortnames in kill-chain order.
func TacticShortnames() []string {
	names := make([]string, 0, len(killChainOrder))
	for name := range killChainOrder {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return killChainOrder[names[i]] < killChainOrder[names[j]]
	})
	return names
}
