package routing

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixmystreet/internal/types"
)

func TestResolve_NoRulesUsesCityDefault(t *testing.T) {
	city := testCity("reports@city.com")
	ward := testWard(city, "ward@city.com")

	for _, cat := range []struct {
		name string
		rc   RoutingContext
	}{
		{"parks", NewRoutingContext(city, ward, testCouncillor("c@x.com"), parksCategory)},
		{"graffiti", NewRoutingContext(city, ward, nil, graffitiCategory)},
		{"no category", NewRoutingContext(city, ward, nil, nil)},
	} {
		t.Run(cat.name, func(t *testing.T) {
			got := Resolve(cat.rc, nil)
			want := Recipients{To: []string{"reports@city.com"}, CC: []string{}}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_NoRulesNoDefault(t *testing.T) {
	city := testCity("")
	rc := NewRoutingContext(city, testWard(city, ""), nil, parksCategory)

	got := Resolve(rc, nil)
	assert.Empty(t, got.To)
	assert.Empty(t, got.CC)
	assert.True(t, got.Empty())
}

func TestResolve_ToCouncillor(t *testing.T) {
	city := testCity("")
	rc := NewRoutingContext(city, testWard(city, ""), testCouncillor("councillor@x.com"), parksCategory)
	rules := []EmailRule{MustEmailRule(1, city.ID, 1, KindToCouncillor, false, nil, "")}

	got := Resolve(rc, rules)
	assert.Equal(t, []string{"councillor@x.com"}, got.To)
	assert.Empty(t, got.CC)
}

func TestResolve_ToWard(t *testing.T) {
	city := testCity("")
	rc := NewRoutingContext(city, testWard(city, "ward1@city.com"), nil, parksCategory)
	rules := []EmailRule{MustEmailRule(1, city.ID, 1, KindToWard, true, nil, "")}

	got := Resolve(rc, rules)
	assert.Empty(t, got.To)
	assert.Equal(t, []string{"ward1@city.com"}, got.CC)
}

func TestResolve_MissingCouncillorContributesNothing(t *testing.T) {
	city := testCity("reports@city.com")
	rc := NewRoutingContext(city, testWard(city, ""), nil, parksCategory)
	rules := []EmailRule{
		MustEmailRule(1, city.ID, 1, KindToCouncillor, false, nil, ""),
		MustEmailRule(2, city.ID, 2, KindToWard, false, nil, ""),
	}

	got := Resolve(rc, rules)
	assert.Equal(t, []string{"reports@city.com"}, got.To)
}

func TestResolve_CategoryRulesAreCumulative(t *testing.T) {
	city := testCity("")
	ward := testWard(city, "")
	rules := []EmailRule{
		MustEmailRule(1, city.ID, 1, KindMatchingCategoryClass, false, &parks, "parks@city.com"),
		MustEmailRule(2, city.ID, 2, KindNotMatchingCategoryClass, false, &parks, "notparks@city.com"),
	}

	parksReport := Resolve(NewRoutingContext(city, ward, nil, parksCategory), rules)
	assert.Equal(t, []string{"parks@city.com"}, parksReport.To)

	otherReport := Resolve(NewRoutingContext(city, ward, nil, graffitiCategory), rules)
	assert.Equal(t, []string{"notparks@city.com"}, otherReport.To)
}

func TestResolve_Charlottetown(t *testing.T) {
	city := testCity("")
	ward := testWard(city, "")
	councillor := testCouncillor("councillor_email@testward1.com")

	tests := []struct {
		name     string
		category *types.Category
		want     Recipients
	}{
		{
			name:     "parks report",
			category: parksCategory,
			want: Recipients{
				To: []string{"parks@city.com"},
				CC: []string{"councillor_email@testward1.com", "parks_cc@city.com"},
			},
		},
		{
			name:     "non-parks report",
			category: graffitiCategory,
			want: Recipients{
				To: []string{"not_parks1@city.com", "not_parks2@city.com"},
				CC: []string{"councillor_email@testward1.com", "not_parks_cc@city.com"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewRoutingContext(city, ward, councillor, tt.category)
			got := Resolve(rc, charlottetownRules())
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestResolve_OrderFollowsSequenceNotSliceOrder(t *testing.T) {
	city := testCity("reports@city.com")
	rc := NewRoutingContext(city, testWard(city, ""), nil, graffitiCategory)

	rules := charlottetownRules()
	// Reverse the slice; sequence numbers must still decide order.
	for i, j := 0, len(rules)-1; i < j; i, j = i+1, j-1 {
		rules[i], rules[j] = rules[j], rules[i]
	}

	got := Resolve(rc, rules)
	assert.Equal(t, []string{"reports@city.com", "not_parks1@city.com", "not_parks2@city.com"}, got.To)
	assert.Equal(t, "reports@city.com, not_parks1@city.com, not_parks2@city.com", got.ToLine())
	assert.Equal(t, int64(6), rules[0].ID, "input slice must not be reordered")
}

func TestResolve_DuplicatesAreKept(t *testing.T) {
	city := testCity("shared@city.com")
	rc := NewRoutingContext(city, testWard(city, "shared@city.com"), nil, parksCategory)
	rules := []EmailRule{
		MustEmailRule(1, city.ID, 1, KindToWard, false, nil, ""),
		MustEmailRule(2, city.ID, 2, KindMatchingCategoryClass, false, &parks, "shared@city.com"),
	}

	got := Resolve(rc, rules)
	assert.Equal(t, []string{"shared@city.com", "shared@city.com", "shared@city.com"}, got.To)
}

func TestResolve_Preconditions(t *testing.T) {
	city := testCity("reports@city.com")

	t.Run("nil ward", func(t *testing.T) {
		assert.PanicsWithValue(t, PreconditionError{Msg: "report has no ward"}, func() {
			NewRoutingContext(city, nil, nil, nil)
		})
	})

	t.Run("nil city", func(t *testing.T) {
		assert.Panics(t, func() {
			NewRoutingContext(nil, testWard(city, ""), nil, nil)
		})
	})

	t.Run("ward from another city", func(t *testing.T) {
		ward := testWard(city, "")
		ward.CityID = 99
		assert.Panics(t, func() {
			NewRoutingContext(city, ward, nil, nil)
		})
	})

	t.Run("zero routing context", func(t *testing.T) {
		assert.Panics(t, func() {
			Resolve(RoutingContext{}, nil)
		})
	})

	t.Run("category rule without email", func(t *testing.T) {
		rc := NewRoutingContext(city, testWard(city, ""), nil, parksCategory)
		broken := EmailRule{ID: 9, CityID: city.ID, Behavior: MatchingCategoryClass{Class: parks}}
		defer func() {
			r := recover()
			require.NotNil(t, r)
			_, ok := r.(PreconditionError)
			assert.True(t, ok, "panic value should be PreconditionError, got %T", r)
		}()
		Resolve(rc, []EmailRule{broken})
	})
}
