package http

import (
	"bytes"
	"html/template"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"dentaldash/internal/analytics"
	"dentaldash/internal/core"
	"dentaldash/internal/log"
	"dentaldash/internal/store"
)

// pageData feeds the dashboard template.
type pageData struct {
	Title       string
	Notice      string
	Table       string
	FetchedAt   time.Time
	Quarantined int
	View        *analytics.ViewModel
	Filter      core.FilterSpec
	Pivot       core.PivotSpec

	// form choices
	Operators  []string
	Years      []int
	Statuses   []core.StatusMode
	Dimensions []core.Field
	Values     []core.Field
	Aggs       []core.AggFunc

	// Query reproduces the current selection in export links.
	Query        template.URL
	OperatorBars []bar
	StatusBars   []bar
}

// bar is one horizontal bar of a CSS chart.
type bar struct {
	Label string
	Value string
	Width float64 // percent of the largest bar
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:      "Dashboard operazioni",
		Table:      s.store.Table(),
		Filter:     analytics.DefaultFilter(nil),
		Pivot:      ParsePivot(r.URL.Query()),
		Statuses:   []core.StatusMode{core.StatusModeAll, core.StatusModeExecuted, core.StatusModeNotExecuted},
		Dimensions: core.DimensionFields(),
		Values:     core.ValueFields(),
		Aggs:       core.AggFuncs(),
	}

	status := http.StatusOK
	view, snap, err := s.renderView(r)
	if snap != nil {
		data.FetchedAt = snap.FetchedAt
		data.Quarantined = len(snap.Quarantined)
		data.Operators = analytics.Operators(snap.Records)
		data.Years = analytics.Years(snap.Records)
		data.Filter = analytics.DefaultFilter(snap.Records)
	}
	if err != nil {
		status, data.Notice = viewErrorStatus(err)
		// an empty or unreachable table is a state the page explains
		if store.IsUnavailable(err) {
			status = http.StatusOK
		}
		log.FromContext(r.Context()).WarnContext(r.Context(), "Dashboard rendered without data", log.FieldError, err)
	} else {
		data.View = view
		data.Filter = view.Filter
		data.Pivot = view.PivotSpec
		data.Query = template.URL(FilterQuery(view.Filter, view.PivotSpec).Encode())
		data.OperatorBars = operatorBars(view.Operators)
		data.StatusBars = statusBars(view.Status)
	}

	s.render(w, r, status, "dashboard.html", data)
}

// render executes a template into a buffer first, so a template error
// becomes a clean 500 instead of a truncated page.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if s.templates == nil {
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			"template", name, log.FieldError, err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func operatorBars(rows []analytics.GroupRow) []bar {
	top := decimal.Zero
	for _, r := range rows {
		if r.TotalAmount.GreaterThan(top) {
			top = r.TotalAmount
		}
	}
	out := make([]bar, 0, len(rows))
	for _, r := range rows {
		width := 0.0
		if top.IsPositive() {
			width, _ = r.TotalAmount.Div(top).Mul(decimal.NewFromInt(100)).Round(1).Float64()
		}
		out = append(out, bar{Label: r.Group, Value: core.FormatEuros(r.TotalAmount), Width: width})
	}
	return out
}

func statusBars(rows []analytics.StatusCount) []bar {
	out := make([]bar, 0, len(rows))
	for _, r := range rows {
		out = append(out, bar{
			Label: r.Status.String(),
			Value: strconv.Itoa(r.Count),
			Width: math.Round(r.Share*10) / 10,
		})
	}
	return out
}

func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"euro": core.FormatEuros,
		"pct": func(f float64) string {
			return strconv.FormatFloat(f, 'f', 1, 64) + "%"
		},
		"date": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("2006-01-02")
		},
		"stamp": func(t time.Time) string {
			return t.Format("02/01/2006 15:04")
		},
		"hasOp":   func(f core.FilterSpec, op string) bool { return f.AcceptsOperator(op) },
		"hasYear": func(f core.FilterSpec, y int) bool { return len(f.Years) > 0 && f.AcceptsYear(y) },
		"money":   func(m core.Money) string { return m.StringFixed(2) },
		"cell":    formatCell,
		"row":     func(g *analytics.Grid, i int) []decimal.Decimal { return g.Cells[i] },
	}
}

// formatCell renders a grid cell: euros for amount aggregates, plain
// numbers for counts.
func formatCell(g *analytics.Grid, d decimal.Decimal) string {
	if g.ValueField == core.FieldAmount && g.Agg != core.AggCount {
		return core.FormatEuros(d)
	}
	return d.String()
}
