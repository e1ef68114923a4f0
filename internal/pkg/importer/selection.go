package importer

import "github.com/jbetancur/kubeimport/internal/pkg/cluster"

// Selection is the ordered set of records the user picked, keyed by id
type Selection struct {
	records []cluster.Config
	index   map[string]int
}

// NewSelection creates an empty selection
func NewSelection() *Selection {
	return &Selection{index: make(map[string]int)}
}

// SetSelected adds or removes record. Adding a selected record or removing an
// unselected one does nothing.
func (s *Selection) SetSelected(record cluster.Config, included bool) {
	pos, exists := s.index[record.ID]

	switch {
	case included && !exists:
		s.index[record.ID] = len(s.records)
		s.records = append(s.records, record)
	case !included && exists:
		s.records = append(s.records[:pos], s.records[pos+1:]...)
		delete(s.index, record.ID)
		for i := pos; i < len(s.records); i++ {
			s.index[s.records[i].ID] = i
		}
	}
}

// IsSelected reports whether a record with id is selected
func (s *Selection) IsSelected(id string) bool {
	_, ok := s.index[id]
	return ok
}

// Records returns the selected records in the order they were selected
func (s *Selection) Records() []cluster.Config {
	records := make([]cluster.Config, len(s.records))
	copy(records, s.records)
	return records
}

// IDs returns the ids of the selected records in selection order
func (s *Selection) IDs() []string {
	ids := make([]string, len(s.records))
	for i, r := range s.records {
		ids[i] = r.ID
	}
	return ids
}

// Len returns the number of selected records
func (s *Selection) Len() int {
	return len(s.records)
}

// Reset empties the selection
func (s *Selection) Reset() {
	s.records = nil
	s.index = make(map[string]int)
}
