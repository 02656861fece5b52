package purpose

// Snapshot is a fully resolved consent state, one boolean per recognized
// purpose. Snapshots are produced fresh on every resolution and never
// mutated in place; superseded snapshots are simply discarded.
//
// One explicit field per purpose keeps comparison and reconciliation
// exhaustive: adding a purpose forces every consumer to take a position.
type Snapshot struct {
	Functional  bool `json:"functional"`
	Analytics   bool `json:"analytics"`
	Marketing   bool `json:"marketing"`
	Preferences bool `json:"preferences"`
}

// Granted reports the resolved decision for a purpose. Unrecognized
// purposes report denied.
func (s Snapshot) Granted(p Purpose) bool {
	switch p {
	case Functional:
		return s.Functional
	case Analytics:
		return s.Analytics
	case Marketing:
		return s.Marketing
	case Preferences:
		return s.Preferences
	}
	return false
}

// Equal compares two snapshots structurally, per purpose. It is used to
// suppress spurious change notifications that carry no actual change.
func (s Snapshot) Equal(other Snapshot) bool {
	return s == other
}
