// Package routing decides which addresses receive a report.
//
// A City owns an ordered set of EmailRules. Each rule wraps one Behavior
// variant; the resolver applies every rule to a RoutingContext and collects
// all non-empty results into to/cc lists. The describer renders the same
// rule set as admin-facing sentences.
package routing

import (
	"fmt"

	"fixmystreet/internal/types"
)

// Kind is the stored discriminator for a Behavior.
type Kind string

const (
	KindToCouncillor             Kind = "to_councillor"
	KindToWard                   Kind = "to_ward"
	KindMatchingCategoryClass    Kind = "matching_category_class"
	KindNotMatchingCategoryClass Kind = "not_matching_category_class"
)

// Kinds lists every valid Kind in display order.
var Kinds = []Kind{
	KindToCouncillor,
	KindToWard,
	KindMatchingCategoryClass,
	KindNotMatchingCategoryClass,
}

// NeedsCategory reports whether rules of this kind require a category class
// and an email.
func (k Kind) NeedsCategory() bool {
	return k == KindMatchingCategoryClass || k == KindNotMatchingCategoryClass
}

// Placeholders used when describing a city without a specific ward.
const (
	CouncillorPlaceholder = "the councillor's email address"
	WardPlaceholder       = "the ward's email address"
	allReports            = "All reports"
)

// Behavior is one routing strategy. The set of implementations is closed.
type Behavior interface {
	Kind() Kind
	// Email returns the address this behavior contributes, or "".
	Email(rc RoutingContext) string
	// Describe is static text explaining the behavior.
	Describe() string
	// ReportGroup labels the reports this behavior applies to.
	ReportGroup() string
	// ValueForWard is the describer value for a specific ward.
	ValueForWard(w WardContact) string
	// ValueForCity is the describer value when no ward is selected.
	ValueForCity() string

	sealed()
}

// ToCouncillor sends every report to the ward councillor.
type ToCouncillor struct{}

func (ToCouncillor) Kind() Kind                        { return KindToCouncillor }
func (ToCouncillor) Email(rc RoutingContext) string    { return rc.CouncillorEmail }
func (ToCouncillor) Describe() string                  { return "Send all reports to the ward councillor" }
func (ToCouncillor) ReportGroup() string               { return allReports }
func (ToCouncillor) ValueForWard(w WardContact) string { return w.CouncillorEmail }
func (ToCouncillor) ValueForCity() string              { return CouncillorPlaceholder }
func (ToCouncillor) sealed()                           {}

// ToWard sends every report to the ward's own address.
type ToWard struct{}

func (ToWard) Kind() Kind                        { return KindToWard }
func (ToWard) Email(rc RoutingContext) string    { return rc.WardEmail }
func (ToWard) Describe() string                  { return "Send all reports to the ward's email address" }
func (ToWard) ReportGroup() string               { return allReports }
func (ToWard) ValueForWard(w WardContact) string { return w.WardEmail }
func (ToWard) ValueForCity() string              { return WardPlaceholder }
func (ToWard) sealed()                           {}

// MatchingCategoryClass sends reports in Class to Address.
type MatchingCategoryClass struct {
	Class   types.CategoryClass
	Address string
}

func (b MatchingCategoryClass) Kind() Kind { return KindMatchingCategoryClass }

func (b MatchingCategoryClass) Email(rc RoutingContext) string {
	if rc.CategoryClassID == b.Class.ID {
		return b.Address
	}
	return ""
}

func (b MatchingCategoryClass) Describe() string {
	return fmt.Sprintf("Send '%s' reports to %s", b.Class.Name, b.Address)
}

func (b MatchingCategoryClass) ReportGroup() string {
	return fmt.Sprintf("'%s' reports", b.Class.Name)
}

func (b MatchingCategoryClass) ValueForWard(WardContact) string { return b.Address }
func (b MatchingCategoryClass) ValueForCity() string            { return b.Address }
func (MatchingCategoryClass) sealed()                           {}

// NotMatchingCategoryClass sends reports outside Class to Address.
type NotMatchingCategoryClass struct {
	Class   types.CategoryClass
	Address string
}

func (b NotMatchingCategoryClass) Kind() Kind { return KindNotMatchingCategoryClass }

func (b NotMatchingCategoryClass) Email(rc RoutingContext) string {
	if rc.CategoryClassID != b.Class.ID {
		return b.Address
	}
	return ""
}

func (b NotMatchingCategoryClass) Describe() string {
	return fmt.Sprintf("Send non-'%s' reports to %s", b.Class.Name, b.Address)
}

func (b NotMatchingCategoryClass) ReportGroup() string {
	return fmt.Sprintf("non-'%s' reports", b.Class.Name)
}

func (b NotMatchingCategoryClass) ValueForWard(WardContact) string { return b.Address }
func (b NotMatchingCategoryClass) ValueForCity() string            { return b.Address }
func (NotMatchingCategoryClass) sealed()                           {}

var (
	_ Behavior = ToCouncillor{}
	_ Behavior = ToWard{}
	_ Behavior = MatchingCategoryClass{}
	_ Behavior = NotMatchingCategoryClass{}
)
