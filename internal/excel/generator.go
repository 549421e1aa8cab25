package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/renolink/bids-service/internal/model"
)

// Generator renders the admin bid register. The register carries contractor
// contact fields and must not be served outside the admin routes.
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

func (g *Generator) Generate(register model.BidRegister) ([]byte, error) {
	file := excelize.NewFile()

	summarySheet := "Summary"
	file.SetSheetName("Sheet1", summarySheet)
	if err := g.writeSummary(file, summarySheet, register); err != nil {
		return nil, err
	}

	bidsSheet := "Bids"
	if _, err := file.NewSheet(bidsSheet); err != nil {
		return nil, err
	}
	if err := g.writeBids(file, bidsSheet, register); err != nil {
		return nil, err
	}

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (g *Generator) writeSummary(file *excelize.File, sheet string, register model.BidRegister) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	byStatus := map[model.BidStatus]int{}
	for _, row := range register.Rows {
		byStatus[row.Bid.Status]++
	}

	set("A1", "Project")
	set("B1", register.Project.Code)
	set("A2", "Project status")
	set("B2", string(register.Project.Status))
	set("A3", "Bid deadline")
	set("B3", formatTimePtr(register.Project.BidDeadline))
	set("A4", "Generated at")
	set("B4", formatTime(register.GeneratedAt))
	set("A5", "Total bids")
	set("B5", len(register.Rows))

	tableRow := 7
	set(fmt.Sprintf("A%d", tableRow), "Status")
	set(fmt.Sprintf("B%d", tableRow), "Count")
	statuses := []model.BidStatus{
		model.BidStatusPending,
		model.BidStatusApproved,
		model.BidStatusRejected,
		model.BidStatusSelected,
		model.BidStatusNotSelected,
		model.BidStatusWithdrawn,
	}
	for i, status := range statuses {
		row := tableRow + 1 + i
		set(fmt.Sprintf("A%d", row), string(status))
		set(fmt.Sprintf("B%d", row), byStatus[status])
	}

	_ = file.SetColWidth(sheet, "A", "A", 24)
	_ = file.SetColWidth(sheet, "B", "B", 24)
	return nil
}

func (g *Generator) writeBids(file *excelize.File, sheet string, register model.BidRegister) error {
	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	headers := []string{
		"Code",
		"Status",
		"Contractor",
		"Email",
		"Phone",
		"Price",
		"Timeline",
		"Response time, h",
		"Reviewed at",
		"Review note",
		"Created at",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		set(cell, header)
	}

	for i, detail := range register.Rows {
		row := i + 2
		bid := detail.Bid
		set(fmt.Sprintf("A%d", row), bid.Code)
		set(fmt.Sprintf("B%d", row), string(bid.Status))
		set(fmt.Sprintf("C%d", row), detail.Contractor.Name)
		set(fmt.Sprintf("D%d", row), detail.Contractor.Email)
		set(fmt.Sprintf("E%d", row), detail.Contractor.Phone)
		set(fmt.Sprintf("F%d", row), fmt.Sprintf("%.2f", bid.Price))
		set(fmt.Sprintf("G%d", row), bid.Timeline)
		set(fmt.Sprintf("H%d", row), formatFloatPtr(bid.ResponseTimeHours))
		set(fmt.Sprintf("I%d", row), formatTimePtr(bid.ReviewedAt))
		set(fmt.Sprintf("J%d", row), formatStringPtr(bid.ReviewNote))
		set(fmt.Sprintf("K%d", row), formatTime(bid.CreatedAt))
	}

	_ = file.SetColWidth(sheet, "A", "B", 16)
	_ = file.SetColWidth(sheet, "C", "E", 28)
	_ = file.SetColWidth(sheet, "F", "H", 16)
	_ = file.SetColWidth(sheet, "I", "K", 20)
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return formatTime(*t)
}

func formatStringPtr(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatFloatPtr(value *float64) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *value)
}
