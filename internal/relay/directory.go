package relay

// directory is the set of session ids currently backed by a live user
// connection, kept in insertion order. Callers hold the service mutex.
type directory struct {
	ids   []string
	index map[string]bool
}

func newDirectory() *directory {
	return &directory{index: make(map[string]bool)}
}

// add inserts id and reports whether the directory changed.
func (d *directory) add(id string) bool {
	if d.index[id] {
		return false
	}
	d.index[id] = true
	d.ids = append(d.ids, id)
	return true
}

// remove deletes id and reports whether the directory changed.
func (d *directory) remove(id string) bool {
	if !d.index[id] {
		return false
	}
	delete(d.index, id)
	for i, existing := range d.ids {
		if existing == id {
			d.ids = append(d.ids[:i], d.ids[i+1:]...)
			break
		}
	}
	return true
}

// snapshot returns a copy of the ids in insertion order, never nil.
func (d *directory) snapshot() []string {
	out := make([]string, len(d.ids))
	copy(out, d.ids)
	return out
}
