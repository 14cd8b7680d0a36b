package frame

import (
	"strings"
	"testing"
	"time"
)

func TestNew_Validation(t *testing.T) {
	a := NewNumeric("a", []float64{1, 2}, nil)
	b := NewText("b", []string{"x"}, nil)
	if _, err := New(a, b); err == nil {
		t.Error("expected error for mismatched lengths")
	}
	if _, err := New(a, NewNumeric("a", []float64{3, 4}, nil)); err == nil {
		t.Error("expected error for duplicate names")
	}
	df, err := New(a, NewText("b", []string{"x", "y"}, nil))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if df.NumRows() != 2 || df.NumCols() != 2 {
		t.Errorf("unexpected shape %dx%d", df.NumRows(), df.NumCols())
	}
}

func TestColumn_DTypeAndValue(t *testing.T) {
	tests := []struct {
		name  string
		col   *Column
		dtype string
		value any
	}{
		{"integral", NewNumeric("n", []float64{1, 2}, nil), "int64", int64(1)},
		{"fractional", NewNumeric("n", []float64{1.5, 2}, nil), "float64", 1.5},
		{"missing makes float", NewNumeric("n", []float64{1, 0}, []bool{false, true}), "float64", int64(1)},
		{"text", NewText("t", []string{"a", "b"}, nil), "object", "a"},
		{"datetime", NewDatetime("d", []time.Time{time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), {}}, nil), "datetime64[ns]", "2024-03-01 00:00:00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.col.DType(); got != tt.dtype {
				t.Errorf("DType() = %s, want %s", got, tt.dtype)
			}
			if got := tt.col.Value(0); got != tt.value {
				t.Errorf("Value(0) = %v (%T), want %v (%T)", got, got, tt.value, tt.value)
			}
		})
	}
}

func TestColumn_MissingAndTake(t *testing.T) {
	c := NewNumeric("n", []float64{1, 0, 3}, []bool{false, true, false})
	if c.NullCount() != 1 {
		t.Errorf("expected 1 null, got %d", c.NullCount())
	}
	if c.Value(1) != nil {
		t.Errorf("expected nil for missing cell, got %v", c.Value(1))
	}
	if got := c.Present(); len(got) != 2 || got[1] != 3 {
		t.Errorf("unexpected present values %v", got)
	}

	taken := c.Take([]int{2, 1})
	if taken.Numbers[0] != 3 || !taken.Missing[1] {
		t.Errorf("unexpected Take result %+v", taken)
	}
	taken.Numbers[0] = 99
	if c.Numbers[2] != 3 {
		t.Error("Take must copy values")
	}
}

func TestEncoding_RoundTrip(t *testing.T) {
	m := EncodingMap{"city": {0: "Berlin", 1: "Paris"}}
	data, err := MarshalEncoding(m)
	if err != nil {
		t.Fatalf("MarshalEncoding failed: %v", err)
	}
	if !strings.Contains(string(data), EncodingSchemaVersion) {
		t.Errorf("expected schema version in %s", data)
	}

	got, err := UnmarshalEncoding(data)
	if err != nil {
		t.Fatalf("UnmarshalEncoding failed: %v", err)
	}
	if got["city"][1] != "Paris" {
		t.Errorf("unexpected decoded map %v", got)
	}
	if v, ok := got.Decode("city", 0); !ok || v != "Berlin" {
		t.Errorf("Decode(city, 0) = %q, %v", v, ok)
	}
	if inv := got.Inverse("city"); inv["Paris"] != 1 {
		t.Errorf("unexpected inverse %v", inv)
	}
}

func TestUnmarshalEncoding_Legacy(t *testing.T) {
	got, err := UnmarshalEncoding([]byte(`{"city": {"0": "Berlin", "1": "Paris"}}`))
	if err != nil {
		t.Fatalf("UnmarshalEncoding failed: %v", err)
	}
	if got["city"][0] != "Berlin" {
		t.Errorf("unexpected legacy map %v", got)
	}

	empty, err := UnmarshalEncoding(nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("expected empty map, got %v, %v", empty, err)
	}
}

func TestUnmarshalEncoding_Errors(t *testing.T) {
	inputs := []string{
		`{"schema_version": "autoviz.encoding/v9", "columns": {}}`,
		`{"city": {"x": "Berlin"}}`,
		`not json`,
	}
	for _, in := range inputs {
		if _, err := UnmarshalEncoding([]byte(in)); err == nil {
			t.Errorf("expected error for %s", in)
		}
	}
}
