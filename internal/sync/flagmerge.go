// Package sync implements a two-way synchronization engine: folder and
// envelope patch builders, flag-merge semantics, a cost-sorted worker
// pool, and the top-level engine that drives a sync run from lock
// acquisition through expunge.
package sync

import "github.com/fenilsonani/mailcore/internal/model"

// mergeFlagPresent decides whether one flag belongs in the merged result,
// given whether it was present in each of the four inputs (local cache,
// local live, remote cache, remote live). A side whose cache had the flag
// and whose live view lacks it has removed it, and the removal wins unless
// the other side newly added the flag (live but not cached), in which case
// the addition wins. With no removal, the flag is kept when either live
// side has it. Flag::Deleted inverts the result in four cases: the two
// add-versus-remove conflicts, and the two where one side has the flag
// both live and cached while the other side has it in neither.
func mergeFlagPresent(localCache, local, remoteCache, remote, deleted bool) bool {
	switch {
	case !localCache && !local && !remoteCache && !remote:
		return false
	case !localCache && !local && !remoteCache && remote:
		return true
	case !localCache && !local && remoteCache && !remote:
		return false
	case !localCache && !local && remoteCache && remote:
		return !deleted
	case !localCache && local && !remoteCache && !remote:
		return true
	case !localCache && local && !remoteCache && remote:
		return true
	case !localCache && local && remoteCache && !remote:
		return !deleted
	case !localCache && local && remoteCache && remote:
		return true
	case localCache && !local && !remoteCache && !remote:
		return false
	case localCache && !local && !remoteCache && remote:
		return !deleted
	case localCache && !local && remoteCache && !remote:
		return false
	case localCache && !local && remoteCache && remote:
		return false
	case localCache && local && !remoteCache && !remote:
		return !deleted
	case localCache && local && !remoteCache && remote:
		return true
	case localCache && local && remoteCache && !remote:
		return false
	default: // localCache && local && remoteCache && remote
		return true
	}
}

// MergeFlags computes the flag set a sync run should install on both
// sides, from each side's live envelope flags and its last-known cached
// flags. Any flag that appears in at least one of the four inputs is
// considered; flags absent from all four never appear in the result.
func MergeFlags(localCache, local, remoteCache, remote model.FlagSet) model.FlagSet {
	seen := make(map[string]model.Flag)
	for _, fs := range []model.FlagSet{localCache, local, remoteCache, remote} {
		for key, f := range fs {
			seen[key] = f
		}
	}

	merged := make(model.FlagSet, len(seen))
	for key, f := range seen {
		present := mergeFlagPresent(
			localCache.Has(f),
			local.Has(f),
			remoteCache.Has(f),
			remote.Has(f),
			f.IsDeleted(),
		)
		if present {
			merged[key] = f
		}
	}
	return merged
}
