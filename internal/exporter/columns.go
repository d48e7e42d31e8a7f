package exporter

import (
	"tankevents/pkg/contracts/domain"
)

// ResultHeaders is the Daily Results column order
var ResultHeaders = []string{
	"Event_Id",
	"Time (Duration)",
	"Time (First)",
	"Time (Last)",
	"Level (Mean)",
	"Level (Min*)",
	"Level (Max*)",
	"Temp. (Mean)",
	"Temp. (Min*)",
	"Temp. (Max*)",
	"Seconds",
	"Total Volume",
	"Event_rate(Appr.)",
	"Minutes",
	"Hours",
	"Quantity",
	"Event_rate(hr)",
	"Event_rate(min)",
	"Event Type",
	"Tank",
	"TFMEUnloadSpotRail",
	"Supply discharge pump%",
	"TFMEWeek_",
	"Site",
	"Plant Code",
}

// DensityHeaders is the GCAS density summary column order
var DensityHeaders = []string{
	"Tank",
	"Day",
	"Mean(OnePercentLITDelta)",
	"Mean(UsableTankVolume)",
	"Min*(UsableTankVolume)",
	"Min*(OnePercentLITDelta)",
	"Max*(OnePercentLITDelta)",
	"Max*(UsableTankVolume)",
	"Mean(Density)",
	"Year",
	"Month (number)",
	"Day of month",
}

// resultValues returns one record's cells in ResultHeaders order. Text cells are strings,
// numeric cells float64 or int, and undefined numbers nil.
func resultValues(r domain.ResultRecord) []interface{} {
	return []interface{}{
		formatTime(r.EventID),
		r.Duration,
		formatTime(r.TimeFirst),
		formatTime(r.TimeLast),
		cellValue(r.Level.Mean),
		cellValue(r.Level.Min),
		cellValue(r.Level.Max),
		cellValue(r.Temperature.Mean),
		cellValue(r.Temperature.Min),
		cellValue(r.Temperature.Max),
		cellValue(r.Seconds),
		cellValue(r.TotalVolume),
		cellValue(r.EventRateApprox),
		cellValue(r.Minutes),
		cellValue(r.Hours),
		cellValue(r.Quantity),
		cellValue(r.EventRatePerHour),
		cellValue(r.EventRatePerMin),
		string(r.Type),
		r.Tank,
		cellValue(r.RailCars),
		cellValue(r.DischargePumpPct),
		r.Week,
		r.Site,
		r.PlantCode,
	}
}

func densityValues(d domain.DensitySummary) []interface{} {
	return []interface{}{
		d.Tank,
		d.Day.Format("2006-01-02"),
		cellValue(d.OnePercentDelta.Mean),
		cellValue(d.UsableVolume.Mean),
		cellValue(d.UsableVolume.Min),
		cellValue(d.OnePercentDelta.Min),
		cellValue(d.OnePercentDelta.Max),
		cellValue(d.UsableVolume.Max),
		cellValue(d.DensityMean),
		d.Year,
		d.Month,
		d.DayOfMonth,
	}
}

// toStrings renders cell values for CSV output
func toStrings(values []interface{}) []string {
	out := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case nil:
			out[i] = ""
		case string:
			out[i] = x
		case float64:
			out[i] = formatFloat(x)
		case int:
			out[i] = formatInt(x)
		}
	}
	return out
}
