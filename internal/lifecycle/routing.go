package lifecycle

import (
	"context"

	"fixmystreet/internal/routing"
	"fixmystreet/internal/types"
)

// ResolveRouting previews where a report is, or would be, sent.
func (s *Service) ResolveRouting(ctx context.Context, reportID int64) (routing.Recipients, error) {
	report, err := s.reports.GetReport(ctx, reportID)
	if err != nil {
		return routing.Recipients{}, err
	}
	sc, err := s.loadScope(ctx, report)
	if err != nil {
		return routing.Recipients{}, err
	}
	return sc.recipients(), nil
}

// DescribeRules renders a city's routing rules. With a ward, ward-dependent
// rules show that ward's concrete addresses.
func (s *Service) DescribeRules(ctx context.Context, cityID int64, wardID *int64) ([]routing.Description, error) {
	city, err := s.cities.GetCity(ctx, cityID)
	if err != nil {
		return nil, err
	}
	rules, err := s.cities.ListRules(ctx, city.ID)
	if err != nil {
		return nil, err
	}

	var contact *routing.WardContact
	if wardID != nil {
		ward, err := s.cities.GetWard(ctx, *wardID)
		if err != nil {
			return nil, err
		}
		if ward.CityID != city.ID {
			return nil, types.NewAppError(types.ErrCodeNotFoundWard, "ward does not belong to this city", nil)
		}
		var councillor *types.Councillor
		if ward.CouncillorID != nil {
			councillor, err = s.cities.GetCouncillor(ctx, *ward.CouncillorID)
			if err != nil {
				return nil, err
			}
		}
		wc := routing.NewWardContact(ward, councillor)
		contact = &wc
	}

	return routing.Describe(city.DefaultEmail(), rules, contact), nil
}
