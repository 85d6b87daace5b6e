package routing

import (
	"fmt"
	"sort"

	"fixmystreet/internal/types"
)

// EmailRule binds a City to one Behavior. Rules are evaluated in ascending
// Sequence, ties broken by ID.
type EmailRule struct {
	ID       int64    `json:"id"`
	CityID   int64    `json:"city_id"`
	Sequence int      `json:"sequence"`
	IsCC     bool     `json:"is_cc"`
	Behavior Behavior `json:"-"`
}

// NewEmailRule builds a rule from its stored columns. Category kinds require
// a class and a valid email; the other kinds ignore both.
func NewEmailRule(id, cityID int64, sequence int, kind Kind, isCC bool, class *types.CategoryClass, email string) (EmailRule, error) {
	b, err := NewBehavior(kind, class, email)
	if err != nil {
		return EmailRule{}, err
	}
	return EmailRule{
		ID:       id,
		CityID:   cityID,
		Sequence: sequence,
		IsCC:     isCC,
		Behavior: b,
	}, nil
}

// MustEmailRule is NewEmailRule for fixtures and tests; it panics on error.
func MustEmailRule(id, cityID int64, sequence int, kind Kind, isCC bool, class *types.CategoryClass, email string) EmailRule {
	r, err := NewEmailRule(id, cityID, sequence, kind, isCC, class, email)
	if err != nil {
		panic(err)
	}
	return r
}

// NewBehavior maps a stored kind and its parameters onto a Behavior.
func NewBehavior(kind Kind, class *types.CategoryClass, email string) (Behavior, error) {
	switch kind {
	case KindToCouncillor:
		return ToCouncillor{}, nil
	case KindToWard:
		return ToWard{}, nil
	case KindMatchingCategoryClass, KindNotMatchingCategoryClass:
		var verr types.ValidationError
		if class == nil || class.ID == 0 {
			verr.Add("category_class", "required for category rules")
		}
		if email == "" {
			verr.Add("email", "required for category rules")
		} else if !types.IsValidEmail(email) {
			verr.Add("email", "invalid email")
		}
		if verr.HasErrors() {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidRule,
				fmt.Sprintf("invalid %s rule", kind), &verr, map[string]any{"fields": verr.Fields})
		}
		if kind == KindMatchingCategoryClass {
			return MatchingCategoryClass{Class: *class, Address: email}, nil
		}
		return NotMatchingCategoryClass{Class: *class, Address: email}, nil
	default:
		return nil, types.NewAppError(types.ErrCodeValidationInvalidRule,
			fmt.Sprintf("unknown rule kind %q", kind), nil)
	}
}

// Kind returns the stored discriminator of the rule's behavior.
func (r EmailRule) Kind() Kind { return r.Behavior.Kind() }

// Label is the report-group label the describer files this rule under.
func (r EmailRule) Label() string { return r.Behavior.ReportGroup() }

// Describe passes through to the behavior.
func (r EmailRule) Describe() string { return r.Behavior.Describe() }

// Value is the describer value for the given ward, or the city-level value
// when ward is nil.
func (r EmailRule) Value(ward *WardContact) string {
	if ward == nil {
		return r.Behavior.ValueForCity()
	}
	return r.Behavior.ValueForWard(*ward)
}

// Email evaluates the rule against a report. It panics with
// PreconditionError if a category rule lost its class or email.
func (r EmailRule) Email(rc RoutingContext) string {
	switch b := r.Behavior.(type) {
	case nil:
		precondition("email rule %d has no behavior", r.ID)
	case MatchingCategoryClass:
		if b.Class.ID == 0 || b.Address == "" {
			precondition("email rule %d is missing its category class or email", r.ID)
		}
	case NotMatchingCategoryClass:
		if b.Class.ID == 0 || b.Address == "" {
			precondition("email rule %d is missing its category class or email", r.ID)
		}
	}
	return r.Behavior.Email(rc)
}

// Destination returns "cc" or "to".
func (r EmailRule) Destination() string {
	if r.IsCC {
		return "cc"
	}
	return "to"
}

// SortRules orders rules by Sequence then ID, in place.
func SortRules(rules []EmailRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].Sequence != rules[j].Sequence {
			return rules[i].Sequence < rules[j].Sequence
		}
		return rules[i].ID < rules[j].ID
	})
}
