// Package report collects convolution timings and verification results and
// renders them as text or JSON.
package report

import (
	"fmt"
	"io"
	"math"
	"slices"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/born-ml/blitz/internal/conv"
	"github.com/born-ml/blitz/internal/tensor"
)

// Geometry is the JSON form of a convolution problem.
type Geometry struct {
	N    int `json:"n"`
	C    int `json:"c"`
	H    int `json:"h"`
	W    int `json:"w"`
	K    int `json:"k"`
	R    int `json:"r"`
	S    int `json:"s"`
	P    int `json:"p"`
	Q    int `json:"q"`
	PadH int `json:"pad_h"`
	PadW int `json:"pad_w"`
	StrH int `json:"stride_h"`
	StrW int `json:"stride_w"`
}

// FromGeometry converts a tensor geometry.
func FromGeometry(g tensor.Conv2DGeometry) Geometry {
	return Geometry{
		N: g.N, C: g.C, H: g.H, W: g.W, K: g.K, R: g.R, S: g.S, P: g.P, Q: g.Q,
		PadH: g.PadH, PadW: g.PadW, StrH: g.StrH, StrW: g.StrW,
	}
}

// Timing summarizes the instrumented runs of one layer, operation and algorithm.
type Timing struct {
	Layer     string        `json:"layer"`
	Operation string        `json:"operation"`
	Algorithm string        `json:"algorithm"`
	Geometry  Geometry      `json:"geometry"`
	Runs      int           `json:"runs"`
	Mean      time.Duration `json:"mean_ns"`
	Min       time.Duration `json:"min_ns"`
	Max       time.Duration `json:"max_ns"`
	GFLOPS    float64       `json:"gflops"`
}

// Check is one verification result: the largest absolute difference between
// an algorithm's output and the reference algorithm's output.
type Check struct {
	Layer      string  `json:"layer"`
	Operation  string  `json:"operation"`
	Algorithm  string  `json:"algorithm"`
	Reference  string  `json:"reference"`
	MaxAbsDiff float64 `json:"max_abs_diff"`
	Tolerance  float64 `json:"tolerance"`
	Passed     bool    `json:"passed"`
}

// WorkspaceSize is the scratch requirement of one layer.
type WorkspaceSize struct {
	Layer    string   `json:"layer"`
	Geometry Geometry `json:"geometry"`
	Elements int      `json:"elements"`
	Bytes    int      `json:"bytes"`
}

// Report is the output of one CLI run.
type Report struct {
	RunID      string          `json:"run_id"`
	Command    string          `json:"command"`
	Device     string          `json:"device"`
	Backend    string          `json:"backend"`
	Layout     string          `json:"layout"`
	StartedAt  time.Time       `json:"started_at"`
	Timings    []Timing        `json:"timings,omitempty"`
	Checks     []Check         `json:"checks,omitempty"`
	Workspaces []WorkspaceSize `json:"workspaces,omitempty"`
}

// New starts a report with a fresh run ID.
func New(command, device, backend string, layout tensor.Layout) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		Command:   command,
		Device:    device,
		Backend:   backend,
		Layout:    layout.String(),
		StartedAt: time.Now().UTC(),
	}
}

// Passed reports whether every check passed.
func (r *Report) Passed() bool {
	for _, c := range r.Checks {
		if !c.Passed {
			return false
		}
	}
	return true
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(w io.Writer) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteText writes the report as aligned tables.
func (r *Report) WriteText(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "run %s  %s on %s (%s)\n\n", r.RunID, r.Command, r.Backend, r.Layout)

	if len(r.Timings) > 0 {
		fmt.Fprintln(tw, "LAYER\tOPERATION\tALGORITHM\tRUNS\tMEAN\tMIN\tMAX\tGFLOPS")
		for _, t := range r.Timings {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%.2f\n",
				t.Layer, t.Operation, t.Algorithm, t.Runs,
				t.Mean.Round(time.Microsecond), t.Min.Round(time.Microsecond), t.Max.Round(time.Microsecond), t.GFLOPS)
		}
		fmt.Fprintln(tw)
	}
	if len(r.Checks) > 0 {
		fmt.Fprintln(tw, "LAYER\tOPERATION\tALGORITHM\tREFERENCE\tMAX ABS DIFF\tRESULT")
		for _, c := range r.Checks {
			result := "ok"
			if !c.Passed {
				result = "FAIL"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%.3g\t%s\n", c.Layer, c.Operation, c.Algorithm, c.Reference, c.MaxAbsDiff, result)
		}
		fmt.Fprintln(tw)
	}
	if len(r.Workspaces) > 0 {
		fmt.Fprintln(tw, "LAYER\tGEOMETRY\tELEMENTS\tBYTES")
		for _, ws := range r.Workspaces {
			g := ws.Geometry
			fmt.Fprintf(tw, "%s\tN%d C%d %dx%d K%d %dx%d\t%d\t%d\n", ws.Layer, g.N, g.C, g.H, g.W, g.K, g.R, g.S, ws.Elements, ws.Bytes)
		}
	}
	return tw.Flush()
}

// Recorder is a conv.Observer that groups events by layer, operation and
// algorithm. The current layer is set with SetLayer before each batch of runs.
type Recorder struct {
	mu     sync.Mutex
	layer  string
	order  []key
	events map[key][]conv.Event
}

type key struct {
	layer     string
	operation conv.Operation
	algorithm conv.Algorithm
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{events: make(map[key][]conv.Event)}
}

// SetLayer names the layer subsequent events belong to.
func (r *Recorder) SetLayer(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.layer = name
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.events = make(map[key][]conv.Event)
}

// ObserveConvolution implements conv.Observer.
func (r *Recorder) ObserveConvolution(e conv.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key{layer: r.layer, operation: e.Operation, algorithm: e.Algorithm}
	if _, ok := r.events[k]; !ok {
		r.order = append(r.order, k)
	}
	r.events[k] = append(r.events[k], e)
}

// Timings summarizes the recorded events in first-seen order.
func (r *Recorder) Timings() []Timing {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Timing, 0, len(r.order))
	for _, k := range r.order {
		events := r.events[k]
		durations := make([]time.Duration, len(events))
		var total time.Duration
		for i, e := range events {
			durations[i] = e.Elapsed
			total += e.Elapsed
		}
		mean := total / time.Duration(len(events))
		t := Timing{
			Layer:     k.layer,
			Operation: k.operation.String(),
			Algorithm: k.algorithm.String(),
			Geometry:  FromGeometry(events[0].Geometry),
			Runs:      len(events),
			Mean:      mean,
			Min:       slices.Min(durations),
			Max:       slices.Max(durations),
		}
		if mean > 0 {
			t.GFLOPS = events[0].FLOPs / mean.Seconds() / 1e9
		}
		out = append(out, t)
	}
	return out
}

// MaxAbsDiff returns the largest element-wise absolute difference. Slices of
// different length compare as +Inf; any NaN makes the result NaN.
func MaxAbsDiff(a, b []float32) float64 {
	if len(a) != len(b) {
		return math.Inf(1)
	}
	var worst float64
	for i := range a {
		d := math.Abs(float64(a[i]) - float64(b[i]))
		if math.IsNaN(d) {
			return math.NaN()
		}
		worst = max(worst, d)
	}
	return worst
}
