package mutation

import "fmt"

// DecayPolicy decides when global mutation shrinks the mutation rate.
type DecayPolicy int

const (
	// DecaySingleParent decays only after mutating from exactly one parent.
	DecaySingleParent DecayPolicy = iota
	// DecayAlways decays after every global mutation.
	DecayAlways
	// DecayNever keeps the rate constant.
	DecayNever
)

// DefaultDecayFactor multiplies the rate each time the policy applies.
const DefaultDecayFactor = 0.7

func (p DecayPolicy) String() string {
	switch p {
	case DecaySingleParent:
		return "single-parent"
	case DecayAlways:
		return "always"
	case DecayNever:
		return "never"
	default:
		return fmt.Sprintf("DecayPolicy(%d)", int(p))
	}
}

// ParseDecayPolicy maps a policy name to a DecayPolicy.
func ParseDecayPolicy(name string) (DecayPolicy, error) {
	switch name {
	case "", "single-parent", "single":
		return DecaySingleParent, nil
	case "always":
		return DecayAlways, nil
	case "never":
		return DecayNever, nil
	default:
		return 0, fmt.Errorf("mutation: unknown decay policy %q", name)
	}
}

// Applies reports whether the policy decays after a mutation from the given
// number of parents.
func (p DecayPolicy) Applies(parents int) bool {
	switch p {
	case DecayAlways:
		return true
	case DecayNever:
		return false
	default:
		return parents == 1
	}
}
