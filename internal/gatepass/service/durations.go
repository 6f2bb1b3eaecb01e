package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/gatepass-hq/server/internal/gatepass/store"
	"github.com/gatepass-hq/server/internal/gatepass/types"
)

// durationLadder is the standard menu of validity windows, in minutes.
var durationLadder = []int{30, 60, 120, 240, 480, 720, 1440}

// maxSampledMiddle caps how many ladder values between the estate's min and
// max appear on the menu.
const maxSampledMiddle = 3

// DurationOptions produces the bounded duration menu for an estate.
//
// The menu always starts at the estate minimum and ends at the maximum (when
// distinct).  When more than three ladder values fall strictly between the
// bounds, three are sampled uniformly without replacement, so the middle of
// the menu varies between calls.  That non-determinism is intended.
type DurationOptions struct {
	estates store.EstateStore
}

func NewDurationOptions(estates store.EstateStore) *DurationOptions {
	return &DurationOptions{estates: estates}
}

func (d *DurationOptions) Options(ctx context.Context, estateID string) ([]types.DurationOption, error) {
	estate, err := d.estates.GetEstate(ctx, estateID)
	if err != nil {
		return nil, err
	}
	return buildOptions(estate.Policy), nil
}

func buildOptions(policy types.IssuancePolicy) []types.DurationOption {
	min, max := policy.MinDurationMinutes, policy.MaxDurationMinutes

	var middle []int
	for _, m := range durationLadder {
		if m > min && m < max {
			middle = append(middle, m)
		}
	}
	if len(middle) > maxSampledMiddle {
		rand.Shuffle(len(middle), func(i, j int) {
			middle[i], middle[j] = middle[j], middle[i]
		})
		middle = middle[:maxSampledMiddle]
	}

	minutes := append([]int{min}, middle...)
	if max != min {
		minutes = append(minutes, max)
	}

	sort.Ints(minutes)
	minutes = dedupe(minutes)

	out := make([]types.DurationOption, 0, len(minutes))
	for _, m := range minutes {
		out = append(out, types.DurationOption{Minutes: m, Label: DurationLabel(m)})
	}
	return out
}

// DurationLabel renders a validity window for menus and buttons: minutes
// below one hour, whole hours up to and including 24h, whole days above.
// Boundaries are floor divisions, so 90 minutes reads "<1h".
func DurationLabel(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("<%d min", minutes)
	}
	hours := minutes / 60
	if hours <= 24 {
		return fmt.Sprintf("<%dh", hours)
	}
	return fmt.Sprintf("<%dd", hours/24)
}

func dedupe(sorted []int) []int {
	out := sorted[:0]
	for i, v := range sorted {
		if i == 0 || v != sorted[i-1] {
			out = append(out, v)
		}
	}
	return out
}
