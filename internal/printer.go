package internal

import (
	"encoding/json"
	"fmt"
	"io"
)

// JsonPrinter writes one JSON document per Print call. The first error is
// kept and turns later calls into no-ops.
type JsonPrinter struct {
	W        io.Writer
	Indent   bool
	AccError error
}

// Report is the final JSON line a tool prints about its run.
type Report struct {
	Tool    string `json:"tool"`
	Version string `json:"version"`
	Result  any    `json:"result,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (p *JsonPrinter) Print(data any, show bool) {
	if !show || p.AccError != nil {
		return
	}
	var out []byte
	var err error
	if p.Indent {
		out, err = json.MarshalIndent(data, "", "  ")
	} else {
		out, err = json.Marshal(data)
	}
	if err != nil {
		p.AccError = fmt.Errorf("marshalling %T: %w", data, err)
		return
	}
	_, p.AccError = fmt.Fprintln(p.W, string(out))
}

// PrintReport prints the outcome of a tool run. A non-nil runErr is
// reported in place of the result.
func (p *JsonPrinter) PrintReport(tool string, result any, runErr error) {
	r := Report{Tool: tool, Version: GetVersion()}
	if runErr != nil {
		r.Error = runErr.Error()
	} else {
		r.Result = result
	}
	p.Print(r, true)
}

func (p *JsonPrinter) Error() error {
	return p.AccError
}
