package lifecycle

import (
	"context"
	"fmt"

	"fixmystreet/internal/routing"
	"fixmystreet/internal/types"
)

// reportScope is a report together with the configuration rows that route it.
type reportScope struct {
	report     *types.Report
	ward       *types.Ward
	city       *types.City
	councillor *types.Councillor
	category   *types.Category
	rules      []routing.EmailRule
}

func (s *Service) loadScope(ctx context.Context, report *types.Report) (*reportScope, error) {
	ward, err := s.cities.GetWard(ctx, report.WardID)
	if err != nil {
		return nil, fmt.Errorf("load ward %d: %w", report.WardID, err)
	}
	city, err := s.cities.GetCity(ctx, ward.CityID)
	if err != nil {
		return nil, fmt.Errorf("load city %d: %w", ward.CityID, err)
	}
	var councillor *types.Councillor
	if ward.CouncillorID != nil {
		councillor, err = s.cities.GetCouncillor(ctx, *ward.CouncillorID)
		if err != nil {
			return nil, fmt.Errorf("load councillor %d: %w", *ward.CouncillorID, err)
		}
	}
	category, err := s.cities.GetCategory(ctx, report.CategoryID)
	if err != nil {
		return nil, fmt.Errorf("load category %d: %w", report.CategoryID, err)
	}
	rules, err := s.cities.ListRules(ctx, city.ID)
	if err != nil {
		return nil, fmt.Errorf("load rules for city %d: %w", city.ID, err)
	}
	return &reportScope{
		report:     report,
		ward:       ward,
		city:       city,
		councillor: councillor,
		category:   category,
		rules:      rules,
	}, nil
}

func (sc *reportScope) recipients() routing.Recipients {
	rc := routing.NewRoutingContext(sc.city, sc.ward, sc.councillor, sc.category)
	return routing.Resolve(rc, sc.rules)
}
