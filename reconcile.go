package tattle

// Reconcile merges the baked-in default articles, the locally authored set,
// and the soft-deletion markers into one canonical collection keyed by id.
//
// Defaults seed the collection in their given order, minus any id present in
// deleted. Local articles then insert or replace in place: a local article
// sharing an id with a default is how "editing a shipped story" is modeled,
// so local always wins. Deleting a default never touches the defaults slice
// itself; it is an exclusion filter applied here.
//
// The returned articles carry their derived Origin tag. Origin is a
// merge-time classification only and must not be persisted.
func Reconcile(defaults, local []Article, deleted map[string]bool) []Article {
	index := make(map[string]int, len(defaults)+len(local))
	out := make([]Article, 0, len(defaults)+len(local))

	for _, a := range defaults {
		if deleted[a.ID] {
			continue
		}
		a.Origin = OriginDefault
		index[a.ID] = len(out)
		out = append(out, a)
	}
	for _, a := range local {
		a.Origin = OriginLocal
		if i, ok := index[a.ID]; ok {
			out[i] = a
			continue
		}
		index[a.ID] = len(out)
		out = append(out, a)
	}
	return out
}

// classify reports where an id in the canonical view came from: local,
// default, or a default hidden by a deletion marker. Used by the delete
// path to choose between a physical remove and a soft-delete marker.
func classify(id string, defaults, local []Article, deleted map[string]bool) Origin {
	for _, a := range local {
		if a.ID == id {
			return OriginLocal
		}
	}
	for _, a := range defaults {
		if a.ID == id {
			if deleted[id] {
				return OriginDeletedDefault
			}
			return OriginDefault
		}
	}
	return OriginUnknown
}
