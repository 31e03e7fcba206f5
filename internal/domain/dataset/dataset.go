// Package dataset loads the raw dashboard collections that the scope
// filters run over.
package dataset

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ehr/dashboard/internal/domain/scope"
)

//go:embed seed.json
var seedJSON []byte

// Dataset holds one unfiltered copy of every entity family.
type Dataset struct {
	Patients            []scope.Patient             `json:"patients"`
	Appointments        []scope.Appointment         `json:"appointments"`
	FinancialItems      []scope.FinancialItem       `json:"financial_items"`
	ClinicalReports     []scope.ClinicalReport      `json:"clinical_reports"`
	PatientStatistics   []scope.PatientStatistic    `json:"patient_statistics"`
	DoctorMetrics       []scope.DoctorMetric        `json:"doctor_metrics"`
	DiseaseTrends       []scope.DiseaseTrend        `json:"disease_trends"`
	ResourceUtilization []scope.ResourceUtilization `json:"resource_utilization"`
}

// Clone returns a copy whose slices do not share backing arrays with d.
func (d *Dataset) Clone() *Dataset {
	if d == nil {
		return nil
	}
	return &Dataset{
		Patients:            clone(d.Patients),
		Appointments:        clone(d.Appointments),
		FinancialItems:      clone(d.FinancialItems),
		ClinicalReports:     clone(d.ClinicalReports),
		PatientStatistics:   clone(d.PatientStatistics),
		DoctorMetrics:       clone(d.DoctorMetrics),
		DiseaseTrends:       clone(d.DiseaseTrends),
		ResourceUtilization: clone(d.ResourceUtilization),
	}
}

func clone[T any](in []T) []T {
	if in == nil {
		return nil
	}
	out := make([]T, len(in))
	copy(out, in)
	return out
}

// Source yields the raw dataset for a request.
type Source interface {
	Load(ctx context.Context) (*Dataset, error)
}

// Decode reads a JSON dataset. Unknown fields are rejected so that typos in
// fixture files surface instead of silently dropping data.
func Decode(r io.Reader) (*Dataset, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var d Dataset
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	return &d, nil
}

// EmbeddedSource serves the demo hospital compiled into the binary.
type EmbeddedSource struct {
	data *Dataset
}

// NewEmbeddedSource parses the embedded seed once.
func NewEmbeddedSource() (*EmbeddedSource, error) {
	d, err := Decode(bytes.NewReader(seedJSON))
	if err != nil {
		return nil, fmt.Errorf("embedded seed: %w", err)
	}
	return &EmbeddedSource{data: d}, nil
}

// Load returns a fresh copy so callers cannot mutate the shared seed.
func (s *EmbeddedSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.data.Clone(), nil
}

// FileSource re-reads a JSON fixture on every Load, so edits show up without
// a restart.
type FileSource struct {
	path string
}

func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (s *FileSource) Load(ctx context.Context) (*Dataset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	d, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return d, nil
}
