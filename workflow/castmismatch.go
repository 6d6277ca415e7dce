package workflow

import "sort"

// CastMismatch compares the characters a day's scenes require against the
// call sheet's declared working cast for that day. Derived per view fetch,
// never persisted.
type CastMismatch struct {
	DerivedCast         []string `json:"derived_cast"`
	DoodWorkCast        []string `json:"dood_work_cast"`
	NeededButNotWorking []string `json:"needed_but_not_working"`
	WorkingButNotNeeded []string `json:"working_but_not_needed"`
	HasMismatch         bool     `json:"has_mismatch"`
}

// ComputeCastMismatch is a pure set comparison. Names are matched exactly and
// case-sensitively; output slices are sorted.
func ComputeCastMismatch(sceneCharacters [][]string, workingCast []string) CastMismatch {
	derived := map[string]struct{}{}
	for _, chars := range sceneCharacters {
		for _, name := range chars {
			if name == "" {
				continue
			}
			derived[name] = struct{}{}
		}
	}
	working := map[string]struct{}{}
	for _, name := range workingCast {
		if name == "" {
			continue
		}
		working[name] = struct{}{}
	}

	result := CastMismatch{
		DerivedCast:         sortedKeys(derived),
		DoodWorkCast:        sortedKeys(working),
		NeededButNotWorking: []string{},
		WorkingButNotNeeded: []string{},
	}
	for name := range derived {
		if _, ok := working[name]; !ok {
			result.NeededButNotWorking = append(result.NeededButNotWorking, name)
		}
	}
	for name := range working {
		if _, ok := derived[name]; !ok {
			result.WorkingButNotNeeded = append(result.WorkingButNotNeeded, name)
		}
	}
	sort.Strings(result.NeededButNotWorking)
	sort.Strings(result.WorkingButNotNeeded)
	result.HasMismatch = len(result.NeededButNotWorking) > 0 || len(result.WorkingButNotNeeded) > 0
	return result
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
