// Package purpose defines the consent purposes recognized by the gating
// engine and the declarative mapping that binds each purpose to a
// resolution rule against an external consent source.
package purpose

// Purpose is a domain value that identifies why telemetry data is processed.
// Invariant: the value must be one of the supported consent purposes.
type Purpose string

// Supported consent purposes. Functional consent is the sole admission gate;
// the remaining purposes influence client configuration only.
const (
	Functional  Purpose = "functional"
	Analytics   Purpose = "analytics"
	Marketing   Purpose = "marketing"
	Preferences Purpose = "preferences"
)

// All is the single source of truth for recognized purposes, in the order
// they are reported.
var All = []Purpose{Functional, Analytics, Marketing, Preferences}

// IsValid checks if the purpose is one of the supported enum values.
func (p Purpose) IsValid() bool {
	switch p {
	case Functional, Analytics, Marketing, Preferences:
		return true
	}
	return false
}

// String returns the string representation of the purpose.
func (p Purpose) String() string {
	return string(p)
}

// Rule describes how a single purpose resolves to a grant decision.
//
// Exactly one of the two fields should be set. A Fixed rule pins the purpose
// to a constant decision with no dependency on the consent source. A Services
// rule grants the purpose only when every listed service identifier is
// individually granted by the source. The zero Rule resolves to denied, as
// does a malformed rule with both fields set.
type Rule struct {
	Fixed    *bool
	Services []string
}

// FixedRule pins a purpose to a constant decision.
func FixedRule(granted bool) Rule {
	return Rule{Fixed: &granted}
}

// ServicesRule grants a purpose only when every identifier is granted.
func ServicesRule(identifiers ...string) Rule {
	return Rule{Services: identifiers}
}

// Mapping binds each purpose to a resolution rule. Purposes with no entry
// resolve to denied. A Mapping is treated as immutable once handed to the
// integration; Clone copies it defensively at that boundary.
type Mapping map[Purpose]Rule

// Clone returns a deep copy so later mutation of the caller's map or its
// identifier slices cannot leak into a running integration.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for p, r := range m {
		c := Rule{}
		if r.Fixed != nil {
			v := *r.Fixed
			c.Fixed = &v
		}
		if r.Services != nil {
			c.Services = append([]string(nil), r.Services...)
		}
		out[p] = c
	}
	return out
}
