package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// ExportScheduleCSV handles GET /loans/{loanId}/schedule.csv. A consumer
// of the derived schedule, nothing more.
func (h *BackofficeHandler) ExportScheduleCSV(w http.ResponseWriter, r *http.Request) {
	loanID := mux.Vars(r)["loanId"]

	installments, err := h.service.GetSchedule(r.Context(), loanID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", loanID+"-schedule.csv"))

	writer := csv.NewWriter(w)
	defer writer.Flush()

	_ = writer.Write([]string{"sequence", "due_date", "principal", "interest", "total", "status"})
	for _, inst := range installments {
		_ = writer.Write([]string{
			fmt.Sprintf("%d", inst.Sequence),
			inst.DueDate.Format("2006-01-02"),
			inst.Principal.StringFixed(2),
			inst.Interest.StringFixed(2),
			inst.Total.StringFixed(2),
			inst.Status,
		})
	}
}
