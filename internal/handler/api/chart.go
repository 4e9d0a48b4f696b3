package api

import (
	"errors"

	"MacroCompass/internal/domain/models"

	charts "github.com/vicanso/go-charts/v2"
)

// ErrNoChartData is returned when no ticker has at least two momentum points.
var ErrNoChartData = errors.New("chart: no momentum history")

// RenderMomentumChart draws the momentum history, in percent, as a PNG line
// chart with one series per basket ticker.
func RenderMomentumChart(h models.MomentumHistory) ([]byte, error) {
	if len(h.Dates) < 2 {
		return nil, ErrNoChartData
	}

	var (
		values [][]float64
		names  []string
	)
	for _, t := range models.Basket {
		hist := h.Values[t]
		if len(hist) != len(h.Dates) {
			continue
		}
		pct := make([]float64, len(hist))
		for i, v := range hist {
			pct[i] = v * 100
		}
		values = append(values, pct)
		names = append(names, t)
	}
	if len(values) == 0 {
		return nil, ErrNoChartData
	}

	split := 6
	if len(h.Dates) < split {
		split = len(h.Dates)
	}
	painter, err := charts.LineRender(values,
		charts.TitleTextOptionFunc("21-day momentum", "% change"),
		charts.XAxisOptionFunc(charts.XAxisOption{Data: h.Dates, BoundaryGap: charts.FalseFlag(), SplitNumber: split}),
		charts.LegendOptionFunc(charts.LegendOption{Data: names, Top: charts.PositionBottom}),
		charts.ThemeOptionFunc(charts.ThemeLight),
		charts.WidthOptionFunc(900),
		charts.HeightOptionFunc(420),
	)
	if err != nil {
		return nil, err
	}
	return painter.Bytes()
}
