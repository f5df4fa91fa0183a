// Package cliout provides the CLI's two output modes: a human-readable,
// lipgloss-styled status line writer, and a --json mode that marshals a
// result object through a stable {"ok": bool, ...} / {"ok": false,
// "error": string} envelope (§7).
package cliout

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/agentsdb/agentsdb-go/internal/agerrors"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// Writer renders CLI output either as styled human-readable lines or as
// a single JSON document, depending on JSON.
type Writer struct {
	out  io.Writer
	JSON bool
}

// New creates a Writer printing to out.
func New(out io.Writer, jsonMode bool) *Writer {
	return &Writer{out: out, JSON: jsonMode}
}

// Status prints an unstyled informational line (human mode only).
func (w *Writer) Status(msg string) {
	if w.JSON {
		return
	}
	_, _ = fmt.Fprintln(w.out, dimStyle.Render(msg))
}

// Statusf formats and prints a status line.
func (w *Writer) Statusf(format string, args ...any) {
	w.Status(fmt.Sprintf(format, args...))
}

// Success prints a success line (human mode only).
func (w *Writer) Success(msg string) {
	if w.JSON {
		return
	}
	_, _ = fmt.Fprintln(w.out, successStyle.Render("✓ "+msg))
}

// Successf formats and prints a success line.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning line (human mode only).
func (w *Writer) Warning(msg string) {
	if w.JSON {
		return
	}
	_, _ = fmt.Fprintln(w.out, warnStyle.Render("! "+msg))
}

// Warningf formats and prints a warning line.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Result emits a successful command outcome: in JSON mode, result is
// marshaled into the {"ok": true, ...} envelope; in human mode, render
// is called to print the human-readable form.
func (w *Writer) Result(result any, render func()) error {
	if !w.JSON {
		render()
		return nil
	}
	envelope, err := okEnvelope(result)
	if err != nil {
		return agerrors.Wrap(agerrors.CodeIO, "", err)
	}
	_, werr := w.out.Write(append(envelope, '\n'))
	return werr
}

// Fail emits a failed command outcome: in JSON mode, the
// {"ok": false, "error": string} envelope; in human mode, the styled
// one-line error report. Returns err unchanged so callers can propagate
// it as the process exit status.
func (w *Writer) Fail(err error) error {
	if w.JSON {
		envelope, marshalErr := agerrors.FormatJSONEnvelope(err)
		if marshalErr == nil {
			_, _ = w.out.Write(append(envelope, '\n'))
		}
		return err
	}
	_, _ = fmt.Fprintln(w.out, errorStyle.Render(agerrors.FormatForCLI(err)))
	return err
}

// Code prints an indented block (human mode only).
func (w *Writer) Code(content string) {
	if w.JSON {
		return
	}
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// okEnvelope flattens result's fields alongside "ok": true when result
// marshals to a JSON object, matching the {"ok": bool, ...} shape; a
// result that marshals to something else (an array, a scalar) is nested
// under a "result" key instead, since there is no field set to flatten
// into.
func okEnvelope(result any) ([]byte, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}

	var asObject map[string]json.RawMessage
	if err := json.Unmarshal(raw, &asObject); err == nil {
		if asObject == nil {
			asObject = map[string]json.RawMessage{}
		}
		asObject["ok"] = json.RawMessage("true")
		return json.Marshal(asObject)
	}

	wrapped := struct {
		OK     bool            `json:"ok"`
		Result json.RawMessage `json:"result"`
	}{OK: true, Result: raw}
	return json.Marshal(wrapped)
}
