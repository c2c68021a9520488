package export

import (
	"strconv"

	"dentaldash/internal/analytics"
)

// Report lays out a rendered view as workbook sheets: headline figures,
// breakdowns, the pivot when it rendered, and the filtered records.
func Report(v *analytics.ViewModel) []Sheet {
	sheets := []Sheet{
		{Name: "KPI", Table: kpiTable(v.KPI, v)},
		{Name: "Status", Table: statusTable(v.Status)},
		{Name: "Timeline", Table: analytics.GroupTable("mese", v.Timeline)},
		{Name: "Operators", Table: analytics.GroupTable("operatore", v.Operators)},
		{Name: "Top operations", Table: FrequencyTable(v.TopOperations)},
	}
	if v.Pivot != nil {
		sheets = append(sheets, Sheet{Name: "Pivot", Table: v.Pivot.Table()})
	}
	if v.Monthly != nil {
		sheets = append(sheets, Sheet{Name: "Monthly revenue", Table: v.Monthly.Table()})
	}
	if v.Running != nil {
		sheets = append(sheets, Sheet{Name: "Running revenue", Table: v.Running.Table()})
	}
	sheets = append(sheets, Sheet{Name: "Records", Table: analytics.RecordTable(v.Rows)})
	return sheets
}

func kpiTable(k analytics.KPI, v *analytics.ViewModel) analytics.Table {
	t := analytics.Table{Header: []string{"metric", "value"}}
	add := func(name, value string) { t.Rows = append(t.Rows, []string{name, value}) }
	add("records", strconv.Itoa(v.Records))
	add("filtered", strconv.Itoa(v.Filtered))
	if v.PeriodFrom != nil {
		add("period_from", v.PeriodFrom.Format("2006-01-02"))
		add("period_to", v.PeriodTo.Format("2006-01-02"))
	}
	add("total_operations", strconv.Itoa(k.TotalOperations))
	add("executed", strconv.Itoa(k.Executed))
	add("completion_rate", strconv.FormatFloat(k.CompletionRate, 'f', 1, 64))
	add("total_revenue", k.TotalRevenue.StringFixed(2))
	add("mean_revenue", k.MeanRevenue.StringFixed(2))
	add("unique_patients", strconv.Itoa(k.UniquePatients))
	add("mean_ops_per_patient", strconv.FormatFloat(k.MeanOpsPerPatient, 'f', 2, 64))
	return t
}

func statusTable(rows []analytics.StatusCount) analytics.Table {
	t := analytics.Table{Header: []string{"status_operazione", "count", "share"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Status.String(), strconv.Itoa(r.Count), strconv.FormatFloat(r.Share, 'f', 1, 64)})
	}
	return t
}

// FrequencyTable lays out a frequency ranking.
func FrequencyTable(rows []analytics.FrequencyRow) analytics.Table {
	t := analytics.Table{Header: []string{"operazione", "count"}}
	for _, r := range rows {
		t.Rows = append(t.Rows, []string{r.Value, strconv.Itoa(r.Count)})
	}
	return t
}
