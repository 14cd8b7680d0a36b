package main

import (
	"fmt"
	"path/filepath"

	"autoviz/internal/analysis"
	"autoviz/internal/config"
	"autoviz/internal/models"
	"autoviz/internal/service"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze FILE",
	Short: "Analyze a CSV file and print a YAML report without saving it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		if !service.IsCSVFile(path) {
			return fmt.Errorf("%s: only .csv files are accepted", path)
		}
		raw, err := analysis.NewCSVService().LoadFile(path)
		if err != nil {
			return err
		}

		analyzer := newAnalyzer(cfg, newLLMService(cfg), nil)
		res, err := analyzer.PrepareFrame(cmd.Context(), raw, filepath.Base(path))
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		if err := enc.Encode(buildReport(res)); err != nil {
			return err
		}
		return enc.Close()
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return config.Dump(cmd.OutOrStdout(), cfg)
	},
}

type reportChart struct {
	Type        string `yaml:"type"`
	X           string `yaml:"x"`
	Y           string `yaml:"y,omitempty"`
	Essential   bool   `yaml:"essential,omitempty"`
	Failed      bool   `yaml:"failed,omitempty"`
	Description string `yaml:"description"`
	Insights    string `yaml:"insights,omitempty"`
}

type report struct {
	File            string                    `yaml:"file"`
	Rows            int                       `yaml:"rows"`
	Columns         int                       `yaml:"columns"`
	TotalNullValues int                       `yaml:"total_null_values"`
	ColumnTypes     map[string]string         `yaml:"column_types"`
	Encoding        map[string]map[int]string `yaml:"encoding,omitempty"`
	Suggestions     []models.ChartSuggestion  `yaml:"suggestions"`
	Charts          []reportChart             `yaml:"charts"`
}

func buildReport(res *service.Analysis) report {
	out := report{
		File:            res.FileName,
		Rows:            res.Stats.Shape[0],
		Columns:         res.Stats.Shape[1],
		TotalNullValues: res.Stats.TotalNullValues,
		ColumnTypes:     make(map[string]string, len(res.Columns)),
		Encoding:        res.Encoding,
		Suggestions:     res.Suggestions,
	}
	for _, c := range res.Columns {
		out.ColumnTypes[c.Name] = c.Type
	}
	for _, c := range res.Charts {
		out.Charts = append(out.Charts, reportChart{
			Type:        c.Type,
			X:           c.X,
			Y:           c.Y,
			Essential:   c.Essential,
			Failed:      c.Result.Failed,
			Description: c.Result.Description,
			Insights:    c.Insights,
		})
	}
	return out
}
