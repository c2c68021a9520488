package http

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"dentaldash/internal/analytics"
	"dentaldash/internal/export"
	"dentaldash/internal/log"
)

// Export kinds served under /export/{kind}.
const (
	exportRecords    = "records"
	exportOperators  = "operators"
	exportOperations = "operations"
	exportTimeline   = "timeline"
	exportPivot      = "pivot"
	exportMonthly    = "monthly"
	exportRunning    = "running"
	exportReport     = "report"
)

// handleExport downloads one section of the current view. The format
// comes from the path extension or the format parameter.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	kind := vars["kind"]
	rawFormat := vars["format"]
	if rawFormat == "" {
		rawFormat = r.URL.Query().Get(paramFormat)
	}
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	view, _, err := s.renderView(r)
	if err != nil {
		s.writeViewError(w, r, err)
		return
	}

	sheets, name, status, msg := exportSheets(kind, format, view)
	if status != http.StatusOK {
		writeError(w, r, status, msg)
		return
	}

	// buffer so a failed workbook does not leave a half-written download
	var buf bytes.Buffer
	if err := export.Write(&buf, format, sheets...); err != nil {
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Export failed",
			log.FieldOperation, log.OpExport, "kind", kind, log.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "errore durante l'esportazione")
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())

	log.FromContext(r.Context()).InfoContext(r.Context(), "Export served",
		log.FieldOperation, log.OpExport, "kind", kind, "format", format, log.FieldFiltered, view.Filtered)
}

// exportSheets selects the tables of an export kind and its file name.
func exportSheets(kind string, format export.Format, v *analytics.ViewModel) ([]export.Sheet, string, int, string) {
	var table analytics.Table
	name := export.FileName(format, kind)

	switch kind {
	case exportRecords:
		table = analytics.RecordTable(v.Rows)
		name = export.FileName(format, "dati_medici_filtrati")
	case exportOperators:
		table = analytics.GroupTable("operatore", v.Operators)
	case exportTimeline:
		table = analytics.GroupTable("mese", v.Timeline)
	case exportOperations:
		table = export.FrequencyTable(v.TopOperations)
	case exportPivot:
		if v.Pivot == nil {
			return nil, "", http.StatusUnprocessableEntity, v.PivotError
		}
		table = v.Pivot.Table()
		name = export.FileName(format, "pivot", string(v.PivotSpec.Rows), string(v.PivotSpec.Columns))
	case exportMonthly:
		table = v.Monthly.Table()
	case exportRunning:
		table = v.Running.Table()
	case exportReport:
		if format != export.FormatXLSX {
			return nil, "", http.StatusBadRequest, "il report completo è disponibile solo in formato xlsx"
		}
		return export.Report(v), export.FileName(format, "report_dentaldash"), http.StatusOK, ""
	default:
		return nil, "", http.StatusNotFound, fmt.Sprintf("esportazione sconosciuta %q", kind)
	}
	return []export.Sheet{{Name: kind, Table: table}}, name, http.StatusOK, ""
}
