package intelligence

import (
	"fmt"
	"math"
	"strings"

	"marketpulse/models"
)

const defaultServiceLevel = "medium"

// PlanStock derives safety stock, reorder point and an order action from a
// daily demand forecast.
func (p Params) PlanStock(forecast []float64, in models.StockInput) models.StockPlan {
	level := strings.ToLower(strings.TrimSpace(in.ServiceLevel))
	z, ok := p.ServiceLevels[level]
	if !ok {
		level = defaultServiceLevel
		z = p.ServiceLevels[defaultServiceLevel]
	}

	lead := in.LeadTimeDays
	if lead < 1 {
		lead = 1
	}

	if len(forecast) == 0 || len(forecast) < lead {
		return models.StockPlan{
			CurrentStock: roundTo(in.CurrentStock, 1),
			Action:       models.StockInsufficientData,
			Message:      "Add more sales history to get a stock recommendation",
			ServiceLevel: level,
			LeadTimeDays: lead,
		}
	}

	avg := mean(forecast)
	sd := popStdDev(forecast)

	leadDemand := avg * float64(lead)
	safety := z * sd * math.Sqrt(float64(lead))
	reorder := leadDemand + safety
	orderQuantity := avg * 7
	maxInventory := reorder + orderQuantity

	daysOfStock := 0.0
	if avg > 0 {
		daysOfStock = in.CurrentStock / avg
	}

	plan := models.StockPlan{
		CurrentStock:   roundTo(in.CurrentStock, 1),
		DaysOfStock:    roundTo(daysOfStock, 1),
		AvgDailyDemand: roundTo(avg, 1),
		SafetyStock:    roundTo(safety, 1),
		ReorderPoint:   roundTo(reorder, 1),
		OrderQuantity:  roundTo(orderQuantity, 1),
		MaxInventory:   roundTo(maxInventory, 1),
		ServiceLevel:   level,
		LeadTimeDays:   lead,
	}

	switch {
	case in.CurrentStock < reorder:
		plan.Action = models.StockOrderNow
		plan.Urgency = "MEDIUM"
		if in.CurrentStock < safety {
			plan.Urgency = "HIGH"
		}
		qty := math.Max(0, orderQuantity-(in.CurrentStock-reorder))
		plan.OrderQty = roundTo(qty, 1)
		plan.Message = fmt.Sprintf("Order now: %.0f units", qty)
	case in.CurrentStock > maxInventory:
		plan.Action = models.StockReduce
		plan.Urgency = "LOW"
		plan.Message = "Stock is above the maximum level, reduce the next order"
	default:
		plan.Action = models.StockMaintain
		plan.Urgency = "LOW"
		plan.Message = "Stock is healthy, keep the current level"
	}
	return plan
}
