package model

// Stats summarizes a computed changeset. Every id in the new snapshot is
// classified into exactly one of insert/update/unchanged, and every
// baseline id absent from the new snapshot into delete, so
// Inserts+Updates+Unchanged always equals TotalNew.
type Stats struct {
	Release   string `json:"release"`
	TotalNew  int    `json:"total_new"`
	Inserts   int    `json:"inserts"`
	Updates   int    `json:"updates"`
	Unchanged int    `json:"unchanged"`
	Deletes   int    `json:"deletes"`
}

// Changes returns the number of operations a target store would apply.
func (s *Stats) Changes() int {
	return s.Inserts + s.Updates + s.Deletes
}
