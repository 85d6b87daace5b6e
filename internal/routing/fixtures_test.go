package routing

import "fixmystreet/internal/types"

func strPtr(s string) *string { return &s }
func int64Ptr(i int64) *int64  { return &i }

var (
	parks    = types.CategoryClass{ID: 1, Name: "Parks"}
	graffiti = types.CategoryClass{ID: 2, Name: "Graffiti"}

	parksCategory    = &types.Category{ID: 10, ClassID: parks.ID, Name: "Broken bench"}
	graffitiCategory = &types.Category{ID: 20, ClassID: graffiti.ID, Name: "Tag on wall"}
)

func testCity(email string) *types.City {
	c := &types.City{ID: 7, Name: "Charlottetown"}
	if email != "" {
		c.Email = strPtr(email)
	}
	return c
}

func testWard(city *types.City, email string) *types.Ward {
	w := &types.Ward{ID: 3, CityID: city.ID, Name: "Ward 1", CouncillorID: int64Ptr(11)}
	if email != "" {
		w.Email = strPtr(email)
	}
	return w
}

func testCouncillor(email string) *types.Councillor {
	return &types.Councillor{ID: 11, CityID: 7, FirstName: "Test", LastName: "Councillor", Email: strPtr(email)}
}

// charlottetownRules mirrors a city that cc's the councillor on everything and
// splits the to/cc addresses on the Parks class.
func charlottetownRules() []EmailRule {
	return []EmailRule{
		MustEmailRule(1, 7, 10, KindToCouncillor, true, nil, ""),
		MustEmailRule(2, 7, 20, KindMatchingCategoryClass, false, &parks, "parks@city.com"),
		MustEmailRule(3, 7, 30, KindMatchingCategoryClass, true, &parks, "parks_cc@city.com"),
		MustEmailRule(4, 7, 40, KindNotMatchingCategoryClass, false, &parks, "not_parks1@city.com"),
		MustEmailRule(5, 7, 50, KindNotMatchingCategoryClass, false, &parks, "not_parks2@city.com"),
		MustEmailRule(6, 7, 60, KindNotMatchingCategoryClass, true, &parks, "not_parks_cc@city.com"),
	}
}
