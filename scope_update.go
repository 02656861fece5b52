package consentgate

import "consentgate/telemetry"

// marketingContextKey names the contextual block holding marketing data; it
// is always cleared on marketing denial even when the setup-time scope never
// recorded it.
const marketingContextKey = "marketing"

// scopeBaseline is the identity, tags, and context blocks present on the
// scope at setup time. Restoration after a marketing re-grant is best-effort
// by design: only what was captured here is restorable, since scopes do not
// generally expose a full read-back API.
type scopeBaseline struct {
	readable bool
	user     *telemetry.User
	tags     map[string]string
	contexts map[string]map[string]any
}

func captureScopeBaseline(scope telemetry.Scope) scopeBaseline {
	reader, ok := scope.(telemetry.ScopeReader)
	if !ok {
		return scopeBaseline{}
	}
	base := scopeBaseline{
		readable: true,
		tags:     reader.Tags(),
		contexts: reader.Contexts(),
	}
	if u, ok := reader.User(); ok {
		base.user = &u
	}
	return base
}

// updateScope aligns the contextual scope with marketing consent: denial
// clears the identity association, removes every recorded tag key outright,
// and drops the marketing context block; a grant restores the setup-time
// capture.
func (r *reconciler) updateScope(marketingGranted bool) {
	if r.client == nil {
		return
	}
	scope := r.client.Scope()
	if scope == nil {
		r.logger.Warn("telemetry scope missing, skipping scope update")
		return
	}

	if !marketingGranted {
		scope.ClearUser()
		for key := range r.scope.tags {
			scope.RemoveTag(key)
		}
		for key := range r.scope.contexts {
			scope.RemoveContext(key)
		}
		scope.RemoveContext(marketingContextKey)
		return
	}

	if !r.scope.readable {
		// Nothing was capturable at setup; a re-grant restores nothing.
		return
	}
	if r.scope.user != nil {
		scope.SetUser(*r.scope.user)
	}
	for key, value := range r.scope.tags {
		scope.SetTag(key, value)
	}
	for key, value := range r.scope.contexts {
		scope.SetContext(key, value)
	}
}
