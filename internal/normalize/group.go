package normalize

import "github.com/sells-group/truckpark-cli/internal/model"

// flagDuplicates groups the table by dedup key and annotates every member of
// a group that spans more than one data source with references to the
// members reported by other sources. Nothing is merged or removed: each
// record keeps its own provenance (a TPIMS siteId must stay on its own row).
//
// Groups are indices into the table, visited in order of first appearance,
// so annotations are deterministic.
func flagDuplicates(table []model.Facility) int {
	groups := make(map[model.DedupKey][]int)
	var order []model.DedupKey
	for i := range table {
		k := table[i].DedupKey
		if k.Empty() {
			continue
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], i)
	}

	flagged := 0
	for _, k := range order {
		members := groups[k]
		if len(members) < 2 || !multiSource(table, members) {
			continue
		}
		flagged++
		for _, i := range members {
			var refs []model.Ref
			for _, j := range members {
				if table[j].DataSource == table[i].DataSource {
					continue
				}
				refs = append(refs, table[j].Ref())
			}
			table[i].PossibleDuplicateOf = refs
		}
	}
	return flagged
}

func multiSource(table []model.Facility, members []int) bool {
	first := table[members[0]].DataSource
	for _, i := range members[1:] {
		if table[i].DataSource != first {
			return true
		}
	}
	return false
}
