package store

// DefaultHistoryDepth is the number of superseded versions kept per name
const DefaultHistoryDepth = 10

// history keeps superseded snapshots per name, oldest first. It is guarded by
// the owning store's lock.
type history struct {
	depth int
	data  map[string][]*Snapshot
}

func newHistory(depth int) *history {
	return &history{depth: depth, data: make(map[string][]*Snapshot)}
}

func (h *history) push(s *Snapshot) {
	versions := append(h.data[s.Name], s)
	if len(versions) > h.depth {
		versions = versions[len(versions)-h.depth:]
	}
	h.data[s.Name] = versions
}

func (h *history) find(name string, version int) *Snapshot {
	for _, s := range h.data[name] {
		if s.Version == version {
			return s
		}
	}
	return nil
}

// versions returns the retained snapshots of name, newest first
func (h *history) versions(name string) []*Snapshot {
	old := h.data[name]
	out := make([]*Snapshot, len(old))
	for i, s := range old {
		out[len(old)-1-i] = s
	}
	return out
}

func (h *history) drop(name string) {
	delete(h.data, name)
}
