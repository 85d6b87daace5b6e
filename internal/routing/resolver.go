package routing

import "strings"

// Recipients is the outcome of routing one report.
type Recipients struct {
	To []string `json:"to"`
	CC []string `json:"cc"`
}

// ToLine joins the to-list for the report's email_sent_to audit column.
func (r Recipients) ToLine() string {
	return strings.Join(r.To, ", ")
}

// Empty reports whether nobody would receive the report.
func (r Recipients) Empty() bool {
	return len(r.To) == 0 && len(r.CC) == 0
}

// Resolve computes the to/cc lists for a report.
//
// The city's default email always comes first in To. Every rule is then
// applied in sequence order and each non-empty result is appended to CC or
// To. Duplicate addresses are kept. rules must all belong to the report's
// city; the input slice is not modified.
func Resolve(rc RoutingContext, rules []EmailRule) Recipients {
	if !rc.resolved {
		precondition("routing context was not built from a ward and city")
	}

	out := Recipients{To: []string{}, CC: []string{}}
	if rc.CityEmail != "" {
		out.To = append(out.To, rc.CityEmail)
	}

	ordered := make([]EmailRule, len(rules))
	copy(ordered, rules)
	SortRules(ordered)

	for _, rule := range ordered {
		email := rule.Email(rc)
		if email == "" {
			continue
		}
		if rule.IsCC {
			out.CC = append(out.CC, email)
		} else {
			out.To = append(out.To, email)
		}
	}
	return out
}
