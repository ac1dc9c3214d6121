package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReconcileIDs(t *testing.T) {
	tests := []struct {
		name        string
		existing    []int
		target      []int
		wantAdded   []int
		wantRemoved []int
	}{
		{name: "both empty"},
		{name: "initial links", target: []int{1, 2}, wantAdded: []int{1, 2}},
		{name: "remove all", existing: []int{1, 2}, wantRemoved: []int{1, 2}},
		{name: "no change", existing: []int{1, 2}, target: []int{2, 1}},
		{name: "mixed", existing: []int{1, 2, 3}, target: []int{2, 4}, wantAdded: []int{4}, wantRemoved: []int{1, 3}},
		{name: "duplicate targets collapse", existing: []int{1}, target: []int{2, 2, 1, 1}, wantAdded: []int{2}},
		{name: "duplicate existing all removed", existing: []int{1, 1}, target: nil, wantRemoved: []int{1, 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			added, removed := ReconcileIDs(tt.existing, tt.target)
			assert.Equal(t, tt.wantAdded, added)
			assert.Equal(t, tt.wantRemoved, removed)
		})
	}
}
