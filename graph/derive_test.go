package graph

import (
	"testing"

	"github.com/zero-day-ai/attackgraph/stix"
)

func TestMitreID(t *testing.T) {
	tests := []struct {
		name string
		obj  stix.Object
		want string
	}{
		{
			name: "first mitre-attack reference wins",
			obj: stix.Object{
				"external_references": []any{
					map[string]any{"source_name": "other", "external_id": "X1"},
					map[string]any{"source_name": "mitre-attack", "external_id": "T1059"},
				},
			},
			want: "T1059",
		},
		{
			name: "multiple mitre references, first wins deterministically",
			obj: stix.Object{
				"external_references": []any{
					map[string]any{"source_name": "mitre-attack", "external_id": "T1001"},
					map[string]any{"source_name": "mitre-attack", "external_id": "T1002"},
				},
			},
			want: "T1001",
		},
		{
			name: "mitre reference with empty external_id is skipped",
			obj: stix.Object{
				"external_references": []any{
					map[string]any{"source_name": "mitre-attack", "url": "https://attack.mitre.org"},
					map[string]any{"source_name": "mitre-attack", "external_id": "S0001"},
				},
			},
			want: "S0001",
		},
		{
			name: "no mitre reference",
			obj: stix.Object{
				"external_references": []any{
					map[string]any{"source_name": "capec", "external_id": "CAPEC-1"},
				},
			},
			want: "",
		},
		{
			name: "no external references at all",
			obj:  stix.Object{"id": "attack-pattern--x"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MitreID(tt.obj); got != tt.want {
				t.Errorf("MitreID() = %q, want %q", got, tt.want)
			}
		})
	}
}
