package routing

import "strings"

// Description summarises where one group of reports goes.
type Description struct {
	Label string   `json:"label"`
	To    []string `json:"to"`
	CC    []string `json:"cc"`
}

// String renders "{label} will be sent to: a,b and cc'd to: c", dropping
// whichever clause is empty.
func (d Description) String() string {
	var b strings.Builder
	b.WriteString(d.Label)
	b.WriteString(" will be ")
	if len(d.To) > 0 {
		b.WriteString("sent to: ")
		b.WriteString(strings.Join(d.To, ","))
	}
	if len(d.To) > 0 && len(d.CC) > 0 {
		b.WriteString(" and ")
	}
	if len(d.CC) > 0 {
		b.WriteString("cc'd to: ")
		b.WriteString(strings.Join(d.CC, ","))
	}
	return b.String()
}

// Describe lists, per report group, where a city's reports are sent. When
// ward is nil the city is described in the abstract and ward-dependent rules
// show a placeholder. Groups come back newest first: the last label to be
// seen is the first entry.
//
// Rules whose value is empty for the given ward are skipped.
func Describe(cityEmail string, rules []EmailRule, ward *WardContact) []Description {
	var order []string
	entries := make(map[string]*Description)

	entry := func(label string) *Description {
		if d, ok := entries[label]; ok {
			return d
		}
		d := &Description{Label: label}
		entries[label] = d
		order = append(order, label)
		return d
	}

	if cityEmail != "" {
		d := entry(allReports)
		d.To = append(d.To, cityEmail)
	}

	ordered := make([]EmailRule, len(rules))
	copy(ordered, rules)
	SortRules(ordered)

	for _, rule := range ordered {
		value := rule.Value(ward)
		if value == "" {
			continue
		}
		d := entry(rule.Label())
		if rule.IsCC {
			d.CC = append(d.CC, value)
		} else {
			d.To = append(d.To, value)
		}
	}

	out := make([]Description, 0, len(order))
	for i := len(order) - 1; i >= 0; i-- {
		out = append(out, *entries[order[i]])
	}
	return out
}
