package models

// Chart types
const (
	ChartHistogram = "histogram"
	ChartBar       = "bar"
	ChartLine      = "line"
	ChartPie       = "pie"
	ChartBox       = "box"
	ChartViolin    = "violin"
	ChartHeatmap   = "heatmap"
	ChartScatter   = "scatter"
)

// AllNumericColumns is the x sentinel for charts drawn over every numeric column.
const AllNumericColumns = "all_numerical_columns"

// ChartSuggestion is a proposed chart before rendering
type ChartSuggestion struct {
	Type   string `json:"type"`
	X      string `json:"x"`
	Y      string `json:"y,omitempty"`
	Reason string `json:"reason"`
}
