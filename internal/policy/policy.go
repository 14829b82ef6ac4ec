// Package policy decides who may manage the platform access lock.
//
// Decisions are pure functions of configuration: no I/O, no side effects.
package policy

// Policy holds the administrator allow-list and the trusted-principal
// exemptions loaded from configuration.
type Policy struct {
	admins  map[string]bool
	trusted map[string]bool
}

// New builds a Policy from the configured admin allow-list and the set of
// principals exempt from the second-factor challenge.
func New(admins, trustedPrincipals []string) *Policy {
	p := &Policy{
		admins:  make(map[string]bool, len(admins)),
		trusted: make(map[string]bool, len(trustedPrincipals)),
	}
	for _, a := range admins {
		p.admins[a] = true
	}
	for _, t := range trustedPrincipals {
		p.trusted[t] = true
	}
	return p
}

// CanManage reports whether the principal may request lock or unlock of
// the platform access lock.
func (p *Policy) CanManage(principal string) bool {
	return p.admins[principal]
}

// RequiresSecondFactor reports whether the principal must complete a
// one-time-code challenge before a transition commits. Principals on the
// trusted list are exempt; everyone else is challenged.
func (p *Policy) RequiresSecondFactor(principal string) bool {
	return !p.trusted[principal]
}
