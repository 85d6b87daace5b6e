package routing

import "fixmystreet/internal/types"

// RoutingContext is the eagerly resolved view of a report that the resolver
// needs. Build it with NewRoutingContext.
type RoutingContext struct {
	CityEmail       string
	WardEmail       string
	CouncillorEmail string
	CategoryClassID int64

	resolved bool
}

// WardContact holds the addresses a specific ward exposes to the describer.
type WardContact struct {
	WardEmail       string
	CouncillorEmail string
}

// NewWardContact flattens a ward and its optional councillor.
func NewWardContact(ward *types.Ward, councillor *types.Councillor) WardContact {
	var wc WardContact
	if ward != nil && ward.Email != nil {
		wc.WardEmail = *ward.Email
	}
	if councillor != nil && councillor.Email != nil {
		wc.CouncillorEmail = *councillor.Email
	}
	return wc
}

// NewRoutingContext flattens the report's ward, city, councillor and category.
// It panics with PreconditionError when the ward or city is missing or when
// the ward does not belong to the city. A nil councillor or category is
// allowed; the rules depending on them simply contribute nothing.
func NewRoutingContext(city *types.City, ward *types.Ward, councillor *types.Councillor, category *types.Category) RoutingContext {
	if ward == nil {
		precondition("report has no ward")
	}
	if city == nil {
		precondition("ward %d has no city", ward.ID)
	}
	if ward.CityID != city.ID {
		precondition("ward %d belongs to city %d, not %d", ward.ID, ward.CityID, city.ID)
	}

	wc := NewWardContact(ward, councillor)
	rc := RoutingContext{
		CityEmail:       city.DefaultEmail(),
		WardEmail:       wc.WardEmail,
		CouncillorEmail: wc.CouncillorEmail,
		resolved:        true,
	}
	if category != nil {
		rc.CategoryClassID = category.ClassID
	}
	return rc
}
