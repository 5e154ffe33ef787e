package service

import (
	"context"
	"fmt"
	"io"
	"time"

	"scanndine/apperr"
	"scanndine/repository"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// Report is the sales summary. It is computed from scratch on every call.
type Report struct {
	TotalOrders  int64                  `json:"totalOrders"`
	TotalRevenue decimal.Decimal        `json:"totalRevenue"`
	Items        []repository.ItemSales `json:"items"`
}

type AnalyticsService struct {
	orders *repository.OrderRepository
	now    func() time.Time
}

func NewAnalyticsService(orders *repository.OrderRepository) *AnalyticsService {
	return &AnalyticsService{orders: orders, now: time.Now}
}

// Report counts every order whatever its status, cleared ones included.
func (s *AnalyticsService) Report(ctx context.Context) (*Report, error) {
	count, revenue, err := s.orders.Totals(ctx)
	if err != nil {
		return nil, err
	}
	items, err := s.orders.ItemBreakdown(ctx)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []repository.ItemSales{}
	}
	return &Report{TotalOrders: count, TotalRevenue: revenue, Items: items}, nil
}

// ExportFilename names the workbook written by Export.
func (s *AnalyticsService) ExportFilename() string {
	return fmt.Sprintf("analytics-%s.xlsx", s.now().Format("20060102-150405"))
}

// Export writes the report as an xlsx workbook with a Summary sheet and an
// Items sheet.
func (s *AnalyticsService) Export(ctx context.Context, w io.Writer) error {
	report, err := s.Report(ctx)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	const summary, items = "Summary", "Items"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return apperr.Upstream("build workbook", err)
	}
	if _, err := f.NewSheet(items); err != nil {
		return apperr.Upstream("build workbook", err)
	}

	revenue, _ := report.TotalRevenue.Float64()
	rows := [][]any{
		{"Generated", s.now().Format(time.RFC3339)},
		{"Total orders", report.TotalOrders},
		{"Total revenue", revenue},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(summary, cell, &row); err != nil {
			return apperr.Upstream("build workbook", err)
		}
	}

	header := []any{"Menu item ID", "Name", "Category", "Description", "Quantity", "Image"}
	if err := f.SetSheetRow(items, "A1", &header); err != nil {
		return apperr.Upstream("build workbook", err)
	}
	for i, it := range report.Items {
		row := []any{it.MenuItemID, it.Name, it.CategoryName, it.Description, it.Quantity, it.ImageURL}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(items, cell, &row); err != nil {
			return apperr.Upstream("build workbook", err)
		}
	}

	if err := f.Write(w); err != nil {
		return apperr.Upstream("write workbook", err)
	}
	return nil
}
