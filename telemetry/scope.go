package telemetry

// Scope is the client's mutable contextual data attached to outgoing events.
// Clearing a tag or context removes the key entirely rather than setting a
// falsy placeholder.
type Scope interface {
	SetUser(user User)
	ClearUser()

	SetTag(key, value string)
	RemoveTag(key string)

	SetContext(key string, value map[string]any)
	RemoveContext(key string)
}

// ScopeReader is optionally implemented by scopes that support read-back.
// The gating engine uses it once at setup to capture the restore baseline;
// without it, restoration after a re-grant is a no-op (best-effort by
// design, since most scopes expose no full read-back API).
type ScopeReader interface {
	User() (User, bool)
	Tags() map[string]string
	Contexts() map[string]map[string]any
}
