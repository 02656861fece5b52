package purpose

// GrantReader is the read-only slice of a consent source needed for
// resolution. The full source contract (including change subscriptions)
// lives in the source package; keeping resolution on the narrow interface
// makes it trivially testable.
type GrantReader interface {
	// Ready reports whether the source is available to answer lookups.
	Ready() bool
	// Granted reports whether a single service identifier is granted.
	// Unknown identifiers report false.
	Granted(identifier string) bool
}

// Resolve evaluates a mapping against the current state of the consent
// source and returns a fresh snapshot. It is a pure function of the mapping
// and source state: no side effects, safe to call before, during, and after
// the source becomes ready.
//
// Resolution per purpose:
//   - fixed rule: the pinned boolean, regardless of source state
//   - absent rule: denied
//   - service identifiers: denied while the source is unavailable, otherwise
//     granted iff every identifier is individually granted (short-circuits
//     on the first denial; no partial credit)
func Resolve(m Mapping, src GrantReader) Snapshot {
	return Snapshot{
		Functional:  resolveRule(m[Functional], src),
		Analytics:   resolveRule(m[Analytics], src),
		Marketing:   resolveRule(m[Marketing], src),
		Preferences: resolveRule(m[Preferences], src),
	}
}

func resolveRule(r Rule, src GrantReader) bool {
	if r.Fixed != nil {
		// A rule carrying both a pinned decision and identifiers is
		// malformed and denies the purpose.
		if len(r.Services) > 0 {
			return false
		}
		return *r.Fixed
	}
	if len(r.Services) == 0 {
		return false
	}
	if src == nil || !src.Ready() {
		return false
	}
	for _, id := range r.Services {
		if !src.Granted(id) {
			return false
		}
	}
	return true
}
