package service

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestAnalyticsTotals(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Mains")
	a := f.item(t, c.ID, "Fifty", "50")
	b := f.item(t, c.ID, "TwoFifty", "250")
	f.table(t, 1)

	_, err := f.orders.PlaceOrder(ctx, "1", []OrderLine{{MenuItemID: a.ID, Qty: 2}}, nil)
	require.NoError(t, err)
	second, err := f.orders.PlaceOrder(ctx, "1", []OrderLine{{MenuItemID: b.ID, Qty: 1}}, nil)
	require.NoError(t, err)
	_, err = f.orders.ClearOrder(ctx, second.ID)
	require.NoError(t, err)

	report, err := f.analytics.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), report.TotalOrders)
	assert.True(t, dec("350").Equal(report.TotalRevenue), "revenue %s", report.TotalRevenue)

	require.Len(t, report.Items, 2)
	assert.Equal(t, a.ID, report.Items[0].MenuItemID)
	assert.Equal(t, int64(2), report.Items[0].Quantity)
	assert.Equal(t, "Mains", report.Items[0].CategoryName)
	assert.Equal(t, int64(1), report.Items[1].Quantity)
}

func TestAnalyticsEmpty(t *testing.T) {
	f := newFixture(t)
	report, err := f.analytics.Report(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.TotalOrders)
	assert.True(t, report.TotalRevenue.IsZero())
	assert.NotNil(t, report.Items)
	assert.Empty(t, report.Items)
}

func TestAnalyticsBreakdownAggregatesAcrossOrders(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Drinks")
	tea := f.item(t, c.ID, "Tea", "2")
	coffee := f.item(t, c.ID, "Coffee", "3")
	f.table(t, 1)

	for _, lines := range [][]OrderLine{
		{{MenuItemID: tea.ID, Qty: 1}, {MenuItemID: coffee.ID, Qty: 2}},
		{{MenuItemID: coffee.ID, Qty: 3}},
		{{MenuItemID: tea.ID, Qty: 1}},
	} {
		_, err := f.orders.PlaceOrder(ctx, "1", lines, nil)
		require.NoError(t, err)
	}

	report, err := f.analytics.Report(ctx)
	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	assert.Equal(t, "Coffee", report.Items[0].Name)
	assert.Equal(t, int64(5), report.Items[0].Quantity)
	assert.Equal(t, "Tea", report.Items[1].Name)
	assert.Equal(t, int64(2), report.Items[1].Quantity)
}

func TestAnalyticsExport(t *testing.T) {
	f := newFixture(t)
	c := f.category(t, "Mains")
	x := f.item(t, c.ID, "Curry", "50")
	f.table(t, 1)
	_, err := f.orders.PlaceOrder(ctx, "1", []OrderLine{{MenuItemID: x.ID, Qty: 2}}, nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, f.analytics.Export(ctx, &buf))

	xl, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer xl.Close()

	orders, err := xl.GetCellValue("Summary", "B2")
	require.NoError(t, err)
	assert.Equal(t, "1", orders)
	revenue, err := xl.GetCellValue("Summary", "B3")
	require.NoError(t, err)
	assert.Equal(t, "100", revenue)

	rows, err := xl.GetRows("Items")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Curry", rows[1][1])
	assert.Equal(t, "2", rows[1][4])

	assert.Contains(t, f.analytics.ExportFilename(), ".xlsx")
}
