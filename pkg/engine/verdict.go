package engine

// Reason explains a verdict. The first five are expected, user-facing
// outcomes; ReasonVerificationFailed covers storage errors and timeouts and
// is the only reason that is also logged server-side.
type Reason string

const (
	ReasonOK                 Reason = "ok"
	ReasonNotAuthenticated   Reason = "not_authenticated"
	ReasonFeatureInactive    Reason = "feature_inactive"
	ReasonPlanInsufficient   Reason = "plan_insufficient"
	ReasonQuotaExhausted     Reason = "quota_exhausted"
	ReasonVerificationFailed Reason = "verification_failed"
)

// Verdict is the transient outcome of one access decision. Remaining is set
// only when a quota increment was applied and exists purely as a UI hint.
type Verdict struct {
	Allow     bool   `json:"canAccess"`
	Reason    Reason `json:"reason"`
	Remaining *int   `json:"remaining,omitempty"`
}

func allowVerdict() Verdict {
	return Verdict{Allow: true, Reason: ReasonOK}
}

func allowWithRemaining(remaining int) Verdict {
	return Verdict{Allow: true, Reason: ReasonOK, Remaining: &remaining}
}

func denyVerdict(reason Reason) Verdict {
	return Verdict{Allow: false, Reason: reason}
}
