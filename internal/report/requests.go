package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
)

const dateLayout = "2006-01-02 15:04"

var header = []interface{}{
	"request_id",
	"status",
	"requested",
	"user",
	"facility",
	"tool_id",
	"tool",
	"quantity",
	"in_stock",
	"exceeds_stock",
	"decided",
	"decided_by",
}

// Requests writes one row per line of every request.
func Requests(list []requests.Request) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}

	row := 2
	for _, r := range list {
		user, facility := "", ""
		if r.User != nil {
			user, facility = r.User.Name, r.User.Facility
		}
		decided := r.DateApproved.Display(dateLayout)
		if decided == "" {
			decided = r.DateRejected.Display(dateLayout)
		}
		by := ""
		if r.ApprovedBy != nil {
			by = r.ApprovedBy.Name
		}
		for _, ln := range r.Lines {
			var stock interface{} = ""
			if ln.InStock != nil {
				stock = *ln.InStock
			}
			exceeds := "no"
			if r.Status == requests.StatusPending && ln.Quantity > ln.Stock() {
				exceeds = "yes"
			}
			excelRow := []interface{}{
				r.ID,
				string(r.Status),
				r.DateRequested.Display(dateLayout),
				user,
				facility,
				ln.ToolID,
				ln.ToolName,
				ln.Quantity,
				stock,
				exceeds,
				decided,
				by,
			}
			cell, err := excelize.CoordinatesToCellName(1, row)
			if err != nil {
				return nil, err
			}
			if err := f.SetSheetRow(sheet, cell, &excelRow); err != nil {
				return nil, fmt.Errorf("row %d: %w", row, err)
			}
			row++
		}
	}

	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// FileName e.g. requests_pending_20250301_101500.xlsx
func FileName(filter requests.Filter, at time.Time) string {
	label := "all"
	if filter != requests.FilterAll {
		label = string(filter)
	}
	return fmt.Sprintf("requests_%s_%s.xlsx", strings.ToLower(label), at.Format("20060102_150405"))
}
