package core

// ReconcileIDs compares the IDs currently linked to a parent entity against
// the desired target set and returns the minimal sets of IDs to link and
// unlink so the final state exactly equals the (deduplicated) target.
// IDs present on both sides are left out of both results, so metadata on
// their join rows survives untouched. Order is not significant.
func ReconcileIDs(existing, target []int) (added, removed []int) {
	existingSet := make(map[int]bool, len(existing))
	for _, id := range existing {
		existingSet[id] = true
	}

	targetSet := make(map[int]bool, len(target))
	for _, id := range target {
		if targetSet[id] {
			continue // dedup
		}
		targetSet[id] = true
		if !existingSet[id] {
			added = append(added, id)
		}
	}

	for _, id := range existing {
		if !targetSet[id] {
			removed = append(removed, id)
		}
	}
	return added, removed
}
