package intelligence

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"marketpulse/models"
)

var dateFormats = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	models.DateLayout,
}

// ParseDate reads a calendar day from a string or time value and returns it
// as midnight UTC.
func ParseDate(value any) (time.Time, error) {
	var t time.Time
	switch v := value.(type) {
	case time.Time:
		t = v
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil date: %w", ErrInvalidDate)
		}
		t = *v
	case string:
		s := strings.TrimSpace(v)
		found := false
		for _, layout := range dateFormats {
			if pt, err := time.Parse(layout, s); err == nil {
				t, found = pt, true
				break
			}
		}
		if !found {
			return time.Time{}, fmt.Errorf("unparseable date %q: %w", v, ErrInvalidDate)
		}
	default:
		return time.Time{}, fmt.Errorf("unsupported date type %T: %w", value, ErrInvalidDate)
	}
	if t.IsZero() {
		return time.Time{}, fmt.Errorf("zero date: %w", ErrInvalidDate)
	}
	return truncateDay(t), nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// CoerceQuantity converts a loosely typed quantity to a non-negative float.
// Missing, unparseable, NaN, infinite and negative values become zero.
func CoerceQuantity(value any) float64 {
	var q float64
	switch v := value.(type) {
	case nil:
		return 0
	case float64:
		q = v
	case float32:
		q = float64(v)
	case int:
		q = float64(v)
	case int32:
		q = float64(v)
	case int64:
		q = float64(v)
	case uint:
		q = float64(v)
	case uint32:
		q = float64(v)
	case uint64:
		q = float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		q = f
	case decimal.Decimal:
		q = v.InexactFloat64()
	case *decimal.Decimal:
		if v == nil {
			return 0
		}
		q = v.InexactFloat64()
	case string:
		s := strings.TrimSpace(v)
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			d, derr := decimal.NewFromString(s)
			if derr != nil {
				return 0
			}
			f = d.InexactFloat64()
		}
		q = f
	case bool:
		return 0
	default:
		return 0
	}
	if math.IsNaN(q) || math.IsInf(q, 0) || q < 0 {
		return 0
	}
	return q
}

// Normalize turns raw rows into an ascending series. Rows with bad dates are
// dropped; same-day rows are kept as separate points.
func Normalize(rows []models.RawSalesRow) []models.SalesPoint {
	series := make([]models.SalesPoint, 0, len(rows))
	for _, row := range rows {
		d, err := ParseDate(row.Date)
		if err != nil {
			continue
		}
		series = append(series, models.SalesPoint{
			Date:        d,
			Quantity:    CoerceQuantity(row.Quantity),
			ProductName: row.ProductName,
		})
	}
	sortSeries(series)
	return series
}

// NormalizePoints applies the same cleaning to already typed points and
// returns a fresh slice.
func NormalizePoints(points []models.SalesPoint) []models.SalesPoint {
	series := make([]models.SalesPoint, 0, len(points))
	for _, p := range points {
		if p.Date.IsZero() {
			continue
		}
		series = append(series, models.SalesPoint{
			Date:        truncateDay(p.Date),
			Quantity:    CoerceQuantity(p.Quantity),
			ProductName: p.ProductName,
		})
	}
	sortSeries(series)
	return series
}

func sortSeries(series []models.SalesPoint) {
	sort.SliceStable(series, func(i, j int) bool {
		return series[i].Date.Before(series[j].Date)
	})
}
