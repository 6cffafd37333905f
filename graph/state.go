package graph

import (
	"encoding/json"
	"fmt"
)

// cloneState returns an independent copy of state made with a JSON round
// trip. Nodes run on the clone, so a node that fails leaves nothing
// half-applied in the checkpoint. Unexported fields are dropped.
func cloneState[S any](state S) (S, error) {
	var out S
	data, err := json.Marshal(state)
	if err != nil {
		return out, fmt.Errorf("clone state: encode: %w", err)
	}
	if err := json.Unmarshal(data, &out); err != nil {
		var zero S
		return zero, fmt.Errorf("clone state: decode: %w", err)
	}
	return out, nil
}
