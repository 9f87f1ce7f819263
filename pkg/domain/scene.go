package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// SceneContext carries advisory hints from the simulation frontend.
// The store's own record stays authoritative for happiness, stage and
// price; hints only seed brand-new sessions and enrich the prompt.
type SceneContext struct {
	ItemsHeld        []string `mapstructure:"items_held"`
	GazeTarget       string   `mapstructure:"gaze_target"`
	Proximity        string   `mapstructure:"proximity"`
	HappinessHint    *int     `mapstructure:"happiness_hint"`
	PatienceHint     *int     `mapstructure:"patience_hint"`
	StageHint        string   `mapstructure:"stage_hint"`
	CurrentPriceHint *int     `mapstructure:"current_price_hint"`
	OfferHint        *int     `mapstructure:"offer_hint"`
}

// DecodeSceneContext parses the untyped hint map callers send.
// Unknown keys are ignored; a nil map yields an empty context. Hint
// scores are clamped so downstream code never sees out-of-range
// values, and a bad stage hint is dropped rather than rejected.
func DecodeSceneContext(raw map[string]any) (SceneContext, error) {
	var sc SceneContext
	if raw == nil {
		return sc, nil
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &sc,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return sc, err
	}
	if err := dec.Decode(raw); err != nil {
		return sc, fmt.Errorf("invalid scene context: %w", err)
	}
	if sc.HappinessHint != nil {
		v := ClampHappiness(*sc.HappinessHint)
		sc.HappinessHint = &v
	}
	if sc.PatienceHint != nil {
		v := ClampHappiness(*sc.PatienceHint)
		sc.PatienceHint = &v
	}
	if sc.StageHint != "" {
		if _, err := ParseStage(sc.StageHint); err != nil {
			sc.StageHint = ""
		}
	}
	return sc, nil
}

// HeldItem returns the first held item, the one a turn record is
// attributed to, or "" when hands are empty.
func (sc SceneContext) HeldItem() string {
	if len(sc.ItemsHeld) == 0 {
		return ""
	}
	return sc.ItemsHeld[0]
}
