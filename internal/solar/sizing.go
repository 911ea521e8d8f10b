package solar

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Sizing and pricing assumptions for Rawalpindi.
const (
	SunHours          = 5.5
	PerformanceRatio  = 0.8
	TariffPKRPerKWh   = 55.0
	PKRPerKWInstalled = 200000.0

	// MinSizeKW is the smallest system ever recommended.
	MinSizeKW = 0.5
	// M2PerKW is the roof area one kW of panels needs.
	M2PerKW = 10.0

	bulkSizeKW    = 5.0
	bulkDiscount  = 0.97
	costRoundStep = 1000.0

	sqFtToM2  = 0.092903
	marlaToM2 = 20.903
)

// EstimateSizeKW returns the recommended system size for s, or 0 when s
// holds nothing to size from. Consumption wins over the bill, which wins
// over roof area.
func EstimateSizeKW(s Session) float64 {
	switch {
	case s.Units > 0:
		return sizeForDailyKWh(s.Units / 30)
	case s.Bill > 0:
		return sizeForDailyKWh(s.Bill / TariffPKRPerKWh / 30)
	case s.AreaM2 > 0:
		return math.Max(MinSizeKW, round1(s.AreaM2/M2PerKW))
	}
	return 0
}

func sizeForDailyKWh(daily float64) float64 {
	return math.Max(MinSizeKW, round1(daily/(SunHours*PerformanceRatio)))
}

// EstimateCostPKR returns the turnkey cost of a sizeKW system, rounded up to
// the next thousand rupees. Systems of 5 kW and above get a 3% discount.
func EstimateCostPKR(sizeKW float64) float64 {
	if sizeKW <= 0 {
		return 0
	}
	base := sizeKW * PKRPerKWInstalled
	if sizeKW >= bulkSizeKW {
		base *= bulkDiscount
	}
	return math.Ceil(base/costRoundStep) * costRoundStep
}

// AreaToM2 converts a roof area in unit to square metres. Unknown units are
// taken as square metres already.
func AreaToM2(amount float64, unit string) float64 {
	switch strings.ToLower(strings.TrimSpace(unit)) {
	case "sq ft", "sqft", "square feet", "ft2":
		return amount * sqFtToM2
	case "marla":
		return amount * marlaToM2
	}
	return amount
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// formatPKR renders whole rupees with thousands separators, e.g. "970,000".
func formatPKR(v float64) string {
	return message.NewPrinter(language.English).Sprintf("%d", int64(math.Round(v)))
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
