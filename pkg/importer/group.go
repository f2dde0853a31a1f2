package importer

// Group holds the entries of one customer, in input order.
type Group struct {
	Document string
	Entries  []Entry
}

// GroupEntries partitions normalized entries by document. Groups come out
// in the order their document is first seen.
func GroupEntries(entries []Entry) []Group {
	idx := make(map[string]int)
	var out []Group
	for _, e := range entries {
		i, ok := idx[e.Document]
		if !ok {
			i = len(out)
			idx[e.Document] = i
			out = append(out, Group{Document: e.Document})
		}
		out[i].Entries = append(out[i].Entries, e)
	}
	return out
}
