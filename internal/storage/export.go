package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/san-kum/rigidsim/internal/sim"
)

var bodyColumns = [sim.BodyStride]string{"x", "y", "z", "vx", "vy", "vz"}

// Header returns the CSV column names for n tracked bodies.
func Header(n int) []string {
	header := make([]string, 0, 1+n*sim.BodyStride)
	header = append(header, "time")
	for i := 0; i < n; i++ {
		for _, c := range bodyColumns {
			header = append(header, fmt.Sprintf("b%d_%s", i, c))
		}
	}
	return header
}

// ExportCSV writes one row per recorded state.
func ExportCSV(out io.Writer, result *sim.Result) error {
	w := csv.NewWriter(out)

	bodies := 0
	if len(result.States) > 0 {
		bodies = result.States[0].Bodies()
	}
	if err := w.Write(Header(bodies)); err != nil {
		return err
	}

	row := make([]string, 0, 1+bodies*sim.BodyStride)
	for i := range result.States {
		row = append(row[:0], strconv.FormatFloat(result.Times[i], 'f', 6, 64))
		for _, val := range result.States[i] {
			row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

type ExportData struct {
	Scenario string             `json:"scenario"`
	Seed     int64              `json:"seed"`
	Dt       float64            `json:"dt"`
	Duration float64            `json:"duration"`
	Steps    int                `json:"steps"`
	Bodies   int                `json:"bodies"`
	Times    []float64          `json:"times"`
	States   [][]float64        `json:"states"`
	Metrics  map[string]float64 `json:"metrics"`
}

func ExportJSON(out io.Writer, info RunInfo, result *sim.Result) error {
	data := ExportData{
		Scenario: info.Scenario,
		Seed:     info.Seed,
		Dt:       info.Dt,
		Duration: info.Duration,
		Steps:    result.StepsTaken,
		Times:    result.Times,
		States:   make([][]float64, len(result.States)),
		Metrics:  result.Metrics,
	}
	if len(result.States) > 0 {
		data.Bodies = result.States[0].Bodies()
	}
	for i, s := range result.States {
		data.States[i] = s
	}

	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
