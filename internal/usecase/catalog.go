package usecase

import (
	"context"
	"strings"

	"paystack-billing/internal/domain"
	"paystack-billing/internal/domain/model"
)

// PlanSource supplies the current plan list. It is called on every lookup so
// deployers can serve plans from a database or remote config.
type PlanSource func(ctx context.Context) ([]model.Plan, error)

type ProductSource func(ctx context.Context) ([]model.Product, error)

// Catalog resolves plans and products by case-insensitive name.
type Catalog struct {
	plans    PlanSource
	products ProductSource
}

func NewCatalog(plans PlanSource, products ProductSource) *Catalog {
	if plans == nil {
		plans = StaticPlans(nil)
	}
	if products == nil {
		products = StaticProducts(nil)
	}
	return &Catalog{plans: plans, products: products}
}

func StaticPlans(plans []model.Plan) PlanSource {
	return func(context.Context) ([]model.Plan, error) { return plans, nil }
}

func StaticProducts(products []model.Product) ProductSource {
	return func(context.Context) ([]model.Product, error) { return products, nil }
}

// Plans returns the plans with duplicate names removed; the first one wins.
func (c *Catalog) Plans(ctx context.Context) ([]model.Plan, error) {
	all, err := c.plans(ctx)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(all))
	out := make([]model.Plan, 0, len(all))
	for _, p := range all {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}
	return out, nil
}

func (c *Catalog) Plan(ctx context.Context, name string) (*model.Plan, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNotFound
	}
	plans, err := c.Plans(ctx)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		if strings.EqualFold(plans[i].Name, name) {
			return &plans[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

// PlanByCode maps a provider plan code back to the local plan.
func (c *Catalog) PlanByCode(ctx context.Context, code string) (*model.Plan, error) {
	if code == "" {
		return nil, domain.ErrNotFound
	}
	plans, err := c.Plans(ctx)
	if err != nil {
		return nil, err
	}
	for i := range plans {
		if plans[i].PlanCode != "" && strings.EqualFold(plans[i].PlanCode, code) {
			return &plans[i], nil
		}
	}
	return nil, domain.ErrNotFound
}

func (c *Catalog) Products(ctx context.Context) ([]model.Product, error) {
	return c.products(ctx)
}

func (c *Catalog) Product(ctx context.Context, name string) (*model.Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrNotFound
	}
	products, err := c.products(ctx)
	if err != nil {
		return nil, err
	}
	for i := range products {
		if strings.EqualFold(products[i].Name, name) {
			return &products[i], nil
		}
	}
	return nil, domain.ErrNotFound
}
