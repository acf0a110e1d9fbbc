package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"

	"github.com/pthm-cable/hunters/components"
)

// evalRecord is one row of optimize_log.csv.
type evalRecord struct {
	Eval         int     `csv:"eval"`
	Fitness      float64 `csv:"fitness"`
	Quality      float64 `csv:"quality"`
	CoexistSec   float64 `csv:"coexist_sec"`
	SoloMean     float64 `csv:"solo_mean"`
	GroupMean    float64 `csv:"group_mean"`
	SoloExtinct  int     `csv:"solo_extinct"`
	GroupExtinct int     `csv:"group_extinct"`
	ElapsedSec   float64 `csv:"elapsed_sec"`
}

// paramRecord is one row of optimize_params.csv, one per parameter per
// evaluation.
type paramRecord struct {
	Eval  int     `csv:"eval"`
	Name  string  `csv:"name"`
	Value float64 `csv:"value"`
}

func newEvalRecord(eval int, s evalSummary, elapsedSec float64) evalRecord {
	return evalRecord{
		Eval:         eval,
		Fitness:      s.Fitness,
		Quality:      s.Quality,
		CoexistSec:   s.CoexistSec,
		SoloMean:     s.MeanCount[components.Solo],
		GroupMean:    s.MeanCount[components.Group],
		SoloExtinct:  s.Extinct[components.Solo],
		GroupExtinct: s.Extinct[components.Group],
		ElapsedSec:   elapsedSec,
	}
}

// evalLog appends evaluation and parameter rows to CSV files.
type evalLog struct {
	evalFile  *os.File
	paramFile *os.File

	evalHeaderWritten  bool
	paramHeaderWritten bool
}

func newEvalLog(dir string) (*evalLog, error) {
	evalFile, err := os.Create(filepath.Join(dir, "optimize_log.csv"))
	if err != nil {
		return nil, fmt.Errorf("creating eval log: %w", err)
	}
	paramFile, err := os.Create(filepath.Join(dir, "optimize_params.csv"))
	if err != nil {
		evalFile.Close()
		return nil, fmt.Errorf("creating param log: %w", err)
	}
	return &evalLog{evalFile: evalFile, paramFile: paramFile}, nil
}

// Write appends one evaluation with the clamped parameter values it ran.
func (l *evalLog) Write(rec evalRecord, specs []ParamSpec, values []float64) error {
	if err := marshalRows([]evalRecord{rec}, l.evalFile, &l.evalHeaderWritten); err != nil {
		return fmt.Errorf("writing eval log: %w", err)
	}

	params := make([]paramRecord, len(specs))
	for i, spec := range specs {
		params[i] = paramRecord{Eval: rec.Eval, Name: spec.Name, Value: values[i]}
	}
	if err := marshalRows(params, l.paramFile, &l.paramHeaderWritten); err != nil {
		return fmt.Errorf("writing param log: %w", err)
	}
	return nil
}

func marshalRows(rows any, f *os.File, headerWritten *bool) error {
	if *headerWritten {
		return gocsv.MarshalWithoutHeaders(rows, f)
	}
	if err := gocsv.Marshal(rows, f); err != nil {
		return err
	}
	*headerWritten = true
	return nil
}

// Close closes both files.
func (l *evalLog) Close() error {
	err := l.evalFile.Close()
	if perr := l.paramFile.Close(); err == nil {
		err = perr
	}
	return err
}
