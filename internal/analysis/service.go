package analysis

import (
	"autoviz/internal/frame"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyFile is returned when an upload has no header row.
var ErrEmptyFile = errors.New("csv file is empty")

// missingTokens are cell values read as missing.
var missingTokens = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"NaN":  true,
	"nan":  true,
	"null": true,
	"NULL": true,
	"None": true,
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"01/02/2006",
}

type CSVService struct{}

func NewCSVService() *CSVService {
	return &CSVService{}
}

// LoadFile reads a CSV file from disk into a typed frame
func (s *CSVService) LoadFile(path string) (*frame.DataFrame, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return s.Load(f, filepath.Base(path))
}

// Load parses CSV content and infers a storage kind per column
func (s *CSVService) Load(r io.Reader, name string) (*frame.DataFrame, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read csv: %w", err)
	}
	data = bytes.TrimPrefix(data, []byte("\ufeff"))

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1 // Allow variable fields
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err == io.EOF {
		return nil, ErrEmptyFile
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read headers: %w", err)
	}
	headers = cleanHeaders(headers)

	rows := [][]string{}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip malformed rows
			continue
		}
		rows = append(rows, record)
	}

	cols := make([]*frame.Column, len(headers))
	for i, h := range headers {
		cells := make([]string, len(rows))
		for j, row := range rows {
			if i < len(row) {
				cells[j] = strings.TrimSpace(row[i])
			}
		}
		cols[i] = buildColumn(h, cells)
	}

	df, err := frame.New(cols...)
	if err != nil {
		return nil, err
	}
	df.FileName = name
	return df, nil
}

func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

// cleanHeaders trims names, labels blank headers and suffixes duplicates.
func cleanHeaders(headers []string) []string {
	out := make([]string, len(headers))
	used := make(map[string]bool, len(headers))
	for i, h := range headers {
		h = strings.TrimSpace(h)
		if h == "" {
			h = fmt.Sprintf("Unnamed: %d", i)
		}
		name := h
		for n := 1; used[name]; n++ {
			name = fmt.Sprintf("%s.%d", h, n)
		}
		used[name] = true
		out[i] = name
	}
	return out
}

func buildColumn(name string, cells []string) *frame.Column {
	missing := make([]bool, len(cells))
	isNumeric, isDate, present := true, true, false
	for i, v := range cells {
		if missingTokens[v] {
			missing[i] = true
			continue
		}
		present = true
		if isNumeric {
			if _, ok := parseNumber(v); !ok {
				isNumeric = false
			}
		}
		if isDate {
			if _, ok := parseDate(v); !ok {
				isDate = false
			}
		}
	}

	switch {
	case present && isNumeric:
		values := make([]float64, len(cells))
		for i, v := range cells {
			if !missing[i] {
				values[i], _ = parseNumber(v)
			}
		}
		return frame.NewNumeric(name, values, missing)
	case present && isDate:
		values := make([]time.Time, len(cells))
		for i, v := range cells {
			if !missing[i] {
				values[i], _ = parseDate(v)
			}
		}
		return frame.NewDatetime(name, values, missing)
	}

	values := make([]string, len(cells))
	for i, v := range cells {
		if !missing[i] {
			values[i] = v
		}
	}
	return frame.NewText(name, values, missing)
}

func parseNumber(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
