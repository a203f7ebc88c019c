// Package charts renders the resolved balance series as PNG line charts.
package charts

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/finbrook/fundview/internal/models"
)

// RenderBalanceChart renders a PNG line chart of a balance series. The
// title is suffixed when the series is a proportional estimate so the
// approximation is visible on the image itself. Returns raw PNG bytes.
func RenderBalanceChart(title string, points []models.HistoryPoint, approximate bool) ([]byte, error) {
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	xValues := make([]time.Time, 0, len(points))
	yValues := make([]float64, 0, len(points))
	for _, p := range points {
		date := p.Date()
		if date.IsZero() {
			continue
		}
		xValues = append(xValues, date)
		yValues = append(yValues, p.TotalBalance)
	}
	if len(xValues) < 2 {
		return nil, fmt.Errorf("need at least 2 dated points, got %d", len(xValues))
	}

	if approximate {
		title += " (estimated)"
	}

	balanceSeries := chart.TimeSeries{
		Name: "Total Balance",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: yValues,
	}

	graph := chart.Chart{
		Title:  title,
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0fk", f/1000)
				}
				return ""
			},
		},
		Series: []chart.Series{
			balanceSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

// RenderRecentChart renders the 90-day view of the resolved series.
func RenderRecentChart(vm *models.ViewModel) ([]byte, error) {
	return RenderBalanceChart("Recent Balance", vm.RecentSeries, vm.SeriesApproximate)
}

// RenderLongTermChart renders the multi-year view of the resolved series.
func RenderLongTermChart(vm *models.ViewModel) ([]byte, error) {
	return RenderBalanceChart("Long Term Balance", vm.LongTermSeries, vm.SeriesApproximate)
}
