// Package usage sums token counters across provider sub-calls and turns.
package usage

import "github.com/promptbench/engine/internal/domain"

// Aggregate sums usage across every response in the sequence. Missing
// counters contribute zero; an empty sequence yields the zero usage.
func Aggregate(responses []*domain.CanonicalResponse) domain.Usage {
	var total domain.Usage
	for _, resp := range responses {
		if resp == nil {
			continue
		}
		total = total.Add(resp.Usage)
	}
	return total
}

// AggregateFromMessages performs the analogous sum by reading each message's
// own usage sub-structure.
func AggregateFromMessages(messages []domain.Message) domain.Usage {
	var total domain.Usage
	for _, msg := range messages {
		if msg.Usage == nil {
			continue
		}
		total = total.Add(*msg.Usage)
	}
	return total
}
