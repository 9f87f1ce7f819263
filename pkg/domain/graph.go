package domain

// GraphContext is a derived read over a session's recorded history.
// It enriches generation input only and never drives validation.
type GraphContext struct {
	Turns       []Turn            `json:"turns"`
	Transitions []StageTransition `json:"transitions"`
	Items       []ItemMentions    `json:"items"`

	// StageDurations counts turns spent in each stage so far.
	StageDurations map[Stage]int `json:"stage_durations"`

	// Trend summarizes the recent happiness movement.
	Trend HappinessTrend `json:"trend"`
}

// ItemMentions aggregates how often one item came up.
type ItemMentions struct {
	Name           string `json:"name"`
	FirstMentioned int    `json:"first_mentioned"`
	LastMentioned  int    `json:"last_mentioned"`
	Mentions       int    `json:"mentions"`
}

// HappinessTrend is the net direction of recent happiness deltas.
type HappinessTrend struct {
	// Deltas holds the most recent happiness changes, oldest first.
	Deltas []int `json:"deltas,omitempty"`
	// Net is the sum of Deltas.
	Net int `json:"net"`
	// Direction is "rising", "falling" or "flat".
	Direction string `json:"direction"`
}

// DeriveGraphContext computes the aggregates from raw records. Store
// adapters persist records, not aggregates; counts are always derived.
func DeriveGraphContext(turns []Turn, transitions []StageTransition) GraphContext {
	gc := GraphContext{
		Turns:          turns,
		Transitions:    transitions,
		StageDurations: make(map[Stage]int),
	}

	items := make(map[string]*ItemMentions)
	var order []string
	var deltas []int
	prevHappiness := -1

	for _, t := range turns {
		gc.StageDurations[t.Stage]++
		if t.Item != "" {
			m, ok := items[t.Item]
			if !ok {
				m = &ItemMentions{Name: t.Item, FirstMentioned: t.Number}
				items[t.Item] = m
				order = append(order, t.Item)
			}
			m.LastMentioned = t.Number
			m.Mentions++
		}
		// Happiness trend follows the responder's side of each exchange.
		if t.Role == RoleResponder {
			if prevHappiness >= 0 {
				deltas = append(deltas, t.Happiness-prevHappiness)
			}
			prevHappiness = t.Happiness
		}
	}

	for _, name := range order {
		gc.Items = append(gc.Items, *items[name])
	}

	const trendWindow = 5
	if len(deltas) > trendWindow {
		deltas = deltas[len(deltas)-trendWindow:]
	}
	gc.Trend.Deltas = deltas
	for _, d := range deltas {
		gc.Trend.Net += d
	}
	switch {
	case gc.Trend.Net > 0:
		gc.Trend.Direction = "rising"
	case gc.Trend.Net < 0:
		gc.Trend.Direction = "falling"
	default:
		gc.Trend.Direction = "flat"
	}

	return gc
}
