package intelligence

import (
	"marketpulse/models"
)

// PlanProfit prices a demand forecast: revenue, variable cost and
// contribution per day, fixed-cost allocation over the period and the
// break-even point.
func (p Params) PlanProfit(forecast []models.ForecastPoint, in models.ProfitInput) models.ProfitPlan {
	contributionPerUnit := in.PricePerUnit - in.CostPerUnit
	plan := models.ProfitPlan{
		PricePerUnit:        in.PricePerUnit,
		CostPerUnit:         in.CostPerUnit,
		ContributionPerUnit: roundTo(contributionPerUnit, 2),
		Daily:               make([]models.DailyProfit, 0, len(forecast)),
	}
	if in.CostPerUnit > 0 {
		plan.MarkupPct = roundTo(contributionPerUnit/in.CostPerUnit*100, 2)
	}
	if len(forecast) == 0 {
		plan.Message = "Run a forecast before planning profit"
		return plan
	}

	var units, revenue, variable float64
	for _, f := range forecast {
		qty := float64(f.PredictedQuantity)
		dayRevenue := qty * in.PricePerUnit
		dayCost := qty * in.CostPerUnit

		units += qty
		revenue += dayRevenue
		variable += dayCost

		plan.Daily = append(plan.Daily, models.DailyProfit{
			Date:               f.Date,
			Quantity:           roundTo(qty, 1),
			Revenue:            roundTo(dayRevenue, 0),
			VariableCost:       roundTo(dayCost, 0),
			ContributionMargin: roundTo(dayRevenue-dayCost, 0),
		})
	}

	contribution := revenue - variable
	fixed := 0.0
	if in.FixedCostsWeekly > 0 {
		fixed = in.FixedCostsWeekly / 7 * float64(len(forecast))
	}
	profit := contribution - fixed

	breakeven := 0.0
	if contributionPerUnit > 0 {
		breakeven = fixed / contributionPerUnit
	}

	plan.TotalUnits = roundTo(units, 1)
	plan.TotalRevenue = roundTo(revenue, 0)
	plan.TotalVariableCost = roundTo(variable, 0)
	plan.TotalContribution = roundTo(contribution, 0)
	plan.FixedCosts = roundTo(fixed, 0)
	plan.TotalProfit = roundTo(profit, 0)
	if revenue > 0 {
		plan.ProfitMarginPct = roundTo(profit/revenue*100, 2)
		plan.ContributionMarginPct = roundTo(contribution/revenue*100, 2)
	}
	plan.BreakevenUnits = roundTo(breakeven, 1)
	plan.AboveBreakeven = units > breakeven
	if units > 0 {
		plan.MarginOfSafetyPct = roundTo((units-breakeven)/units*100, 2)
	}
	return plan
}
