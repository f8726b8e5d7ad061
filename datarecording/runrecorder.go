package datarecording

import (
	"os"
	"strings"
	"time"
)

// RunInfoTable is the table that holds the properties of a run.
const RunInfoTable = "run_info"

// RunInfo is one property of a simulation run.
type RunInfo struct {
	Property string
	Value    string
}

// A RunRecorder records how and when a simulation was run.
type RunRecorder struct {
	recorder DataRecorder
	entries  []RunInfo
}

// NewRunRecorder creates the run info table in recorder.
func NewRunRecorder(recorder DataRecorder) *RunRecorder {
	recorder.CreateTable(RunInfoTable, RunInfo{})

	return &RunRecorder{
		recorder: recorder,
	}
}

// Start records the start time, the command line and the working directory.
func (e *RunRecorder) Start() {
	e.Add("Start Time", now())
	e.Add("Command", strings.Join(os.Args, " "))

	cwd, err := os.Getwd()
	if err == nil {
		e.Add("Working Directory", cwd)
	}
}

// Add buffers a property of the run.
func (e *RunRecorder) Add(property, value string) {
	e.entries = append(e.entries, RunInfo{Property: property, Value: value})
}

// End writes the buffered properties along with the end time.
func (e *RunRecorder) End() {
	e.Add("End Time", now())

	for _, entry := range e.entries {
		e.recorder.InsertData(RunInfoTable, entry)
	}

	e.entries = nil

	e.recorder.Flush()
}

func now() string {
	return time.Now().Format("2006-01-02 15:04:05.000000000")
}
