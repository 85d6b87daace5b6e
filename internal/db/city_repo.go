package db

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"

	"fixmystreet/internal/routing"
	"fixmystreet/internal/types"
)

// CityRepository reads cities, wards, councillors, categories and the email
// rules that drive routing.
type CityRepository struct {
	db DBTX
}

// NewCityRepository creates a CityRepository.
func NewCityRepository(db DBTX) *CityRepository {
	return &CityRepository{db: db}
}

func (r *CityRepository) GetCity(ctx context.Context, id int64) (*types.City, error) {
	var c types.City
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, name, email, category_set_id FROM cities WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.CategorySetID)
	if err != nil {
		return nil, mapError(err, types.ErrCodeNotFoundCity, "city")
	}
	return &c, nil
}

func (r *CityRepository) GetWard(ctx context.Context, id int64) (*types.Ward, error) {
	var w types.Ward
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, city_id, name, councillor_id, email FROM wards WHERE id = $1`, id,
	).Scan(&w.ID, &w.CityID, &w.Name, &w.CouncillorID, &w.Email)
	if err != nil {
		return nil, mapError(err, types.ErrCodeNotFoundWard, "ward")
	}
	return &w, nil
}

func (r *CityRepository) GetCouncillor(ctx context.Context, id int64) (*types.Councillor, error) {
	var c types.Councillor
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, city_id, first_name, last_name, email FROM councillors WHERE id = $1`, id,
	).Scan(&c.ID, &c.CityID, &c.FirstName, &c.LastName, &c.Email)
	if err != nil {
		return nil, mapError(err, types.ErrCodeNotFoundCouncillor, "councillor")
	}
	return &c, nil
}

func (r *CityRepository) GetCategory(ctx context.Context, id int64) (*types.Category, error) {
	var c types.Category
	err := conn(ctx, r.db).QueryRow(ctx,
		`SELECT id, class_id, name, hint FROM categories WHERE id = $1`, id,
	).Scan(&c.ID, &c.ClassID, &c.Name, &c.Hint)
	if err != nil {
		return nil, mapError(err, types.ErrCodeNotFoundCategory, "category")
	}
	return &c, nil
}

// ListRules returns the city's email rules in evaluation order. A row that
// no longer forms a valid rule fails the whole call rather than silently
// changing who receives reports.
func (r *CityRepository) ListRules(ctx context.Context, cityID int64) ([]routing.EmailRule, error) {
	query, args, err := psql.
		Select("r.id", "r.city_id", "r.sequence", "r.kind", "r.is_cc",
			"r.category_class_id", "cc.name", "COALESCE(r.email, '')").
		From("email_rules r").
		LeftJoin("category_classes cc ON cc.id = r.category_class_id").
		Where(squirrel.Eq{"r.city_id": cityID}).
		OrderBy("r.sequence", "r.id").
		ToSql()
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to build rules query", err)
	}

	rows, err := conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to list email rules", err)
	}
	defer rows.Close()

	rules := []routing.EmailRule{}
	for rows.Next() {
		var (
			id, ruleCity int64
			sequence     int
			kind         string
			isCC         bool
			classID      *int64
			className    *string
			email        string
		)
		if err := rows.Scan(&id, &ruleCity, &sequence, &kind, &isCC, &classID, &className, &email); err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalDB, "failed to scan email rule", err)
		}

		var class *types.CategoryClass
		if classID != nil {
			class = &types.CategoryClass{ID: *classID}
			if className != nil {
				class.Name = *className
			}
		}

		rule, err := routing.NewEmailRule(id, ruleCity, sequence, routing.Kind(kind), isCC, class, email)
		if err != nil {
			return nil, fmt.Errorf("ListRules: rule %d: %w", id, err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalDB, "error iterating email rules", err)
	}
	return rules, nil
}
