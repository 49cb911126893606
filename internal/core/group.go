package core

// Group is one parent together with every child that shares its key.
type Group[K comparable, P any, C any] struct {
	Key      K
	Parent   P
	Children []C
}

// GroupRows folds rows sharing a key into a single Group, in order of first
// appearance. The parent value is taken from the first row of each key.
// child reports false for rows that carry no child (e.g. the empty side of a
// left join); such rows still produce a group with an empty, non-nil
// Children slice.
func GroupRows[R any, K comparable, P any, C any](rows []R, key func(R) K, parent func(R) P, child func(R) (C, bool)) []Group[K, P, C] {
	out := make([]Group[K, P, C], 0)
	index := make(map[K]int)
	for _, row := range rows {
		k := key(row)
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, Group[K, P, C]{Key: k, Parent: parent(row), Children: make([]C, 0)})
		}
		if c, ok := child(row); ok {
			out[i].Children = append(out[i].Children, c)
		}
	}
	return out
}
