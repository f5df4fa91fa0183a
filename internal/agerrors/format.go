package agerrors

import (
	"encoding/json"
	"fmt"
)

// FormatForCLI formats an error for human-readable terminal display: the
// sentence printed to stderr on failure, per §7.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}
	ae, ok := err.(*AgdbError)
	if !ok {
		return fmt.Sprintf("Error: %s", err.Error())
	}
	if ae.Path != "" {
		return fmt.Sprintf("Error: %s (%s) [%s]", ae.Message, ae.Path, ae.Code)
	}
	return fmt.Sprintf("Error: %s [%s]", ae.Message, ae.Code)
}

// jsonEnvelope is the `{"ok": false, "error": string}` shape every CLI
// command emits on failure when --json is set.
type jsonEnvelope struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// FormatJSONEnvelope returns the `--json` failure envelope for err.
func FormatJSONEnvelope(err error) ([]byte, error) {
	return json.Marshal(jsonEnvelope{OK: false, Error: errString(err)})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// FormatForLog formats an error for structured slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}
	ae, ok := err.(*AgdbError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}
	result := map[string]any{
		"error_code": ae.Code,
		"message":    ae.Message,
		"category":   string(ae.Category),
	}
	if ae.Path != "" {
		result["path"] = ae.Path
	}
	if ae.Cause != nil {
		result["cause"] = ae.Cause.Error()
	}
	for k, v := range ae.Details {
		result["detail_"+k] = v
	}
	return result
}
