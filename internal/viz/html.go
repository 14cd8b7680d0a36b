package viz

import (
	"fmt"
	"html"
	"io"
	"math"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// errorMarker starts every error payload.
const errorMarker = "<!-- autoviz:error -->"

type renderable interface {
	Render(w io.Writer) error
}

func renderHTML(c renderable) (string, error) {
	var b strings.Builder
	if err := c.Render(&b); err != nil {
		return "", fmt.Errorf("failed to render chart: %w", err)
	}
	return b.String(), nil
}

// IsErrorPayload reports whether payload is the designated error chart.
func IsErrorPayload(payload string) bool {
	return strings.HasPrefix(payload, errorMarker)
}

// ErrorPayload draws an empty chart whose title carries the message.
func ErrorPayload(message string) string {
	c := charts.NewBar()
	c.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Visualization error",
			Subtitle: message,
			Left:     "center",
			Top:      "middle",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "400px"}),
	)
	body, err := renderHTML(c)
	if err != nil {
		body = `<div class="viz-error">` + html.EscapeString(message) + `</div>`
	}
	return errorMarker + "\n" + body
}

func errorResult(message string) Result {
	if message != "" {
		message = strings.ToUpper(message[:1]) + message[1:]
	}
	return Result{
		Payload:     ErrorPayload(message),
		Description: message,
		Failed:      true,
		Stats:       map[string]float64{},
	}
}

func baseOptions(title, subtitle string) []charts.GlobalOpts {
	return []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: title, Subtitle: subtitle}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
	}
}

// round4 keeps payloads compact. Magnitudes where four decimals no longer
// exist are returned as they are.
func round4(v float64) float64 {
	if math.Abs(v) >= 1e15 {
		return v
	}
	return math.Round(v*1e4) / 1e4
}
