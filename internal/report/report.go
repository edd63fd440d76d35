// Package report renders inspection results for the console.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/breeze-rmm/registry-inspector/internal/hostinfo"
	"github.com/breeze-rmm/registry-inspector/internal/inspector"
	"github.com/breeze-rmm/registry-inspector/internal/store"
)

// Format selects how a result is printed.
type Format string

const (
	// FormatPlain prints SECURE, VULNERABLE or ERROR: <message>.
	FormatPlain Format = "plain"
	// FormatStructured prints the single-line object consumed by the scanner.
	FormatStructured Format = "structured"
	// FormatJSON prints a full JSON record.
	FormatJSON Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatPlain, FormatStructured, FormatJSON}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Formats {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown output format %q (want plain, structured or json)", s)
}

// Risk levels derived from a verdict.
const (
	RiskLow     = "LOW"
	RiskHigh    = "HIGH"
	RiskUnknown = "UNKNOWN"
)

// Risk maps a verdict to the risk level reported to operators.
func Risk(v inspector.Verdict) string {
	switch v {
	case inspector.VerdictSecure:
		return RiskLow
	case inspector.VerdictVulnerable:
		return RiskHigh
	default:
		return RiskUnknown
	}
}

// Remediation returns a PowerShell command that would set the value to what
// the check expects. It is empty unless the result is VULNERABLE.
func Remediation(res inspector.Result) string {
	if res.Verdict != inspector.VerdictVulnerable {
		return ""
	}

	loc, err := store.ParseLocation(res.Request.Location)
	if err != nil {
		return ""
	}

	value := res.Expected()
	if _, err := strconv.ParseUint(value, 10, 64); err != nil {
		value = "'" + strings.ReplaceAll(value, "'", "''") + "'"
	}

	return fmt.Sprintf(`Set-ItemProperty -Path "%s:\%s" -Name "%s" -Value %s`,
		loc.Hive, loc.Path, res.Request.ValueName, value)
}

// Plain renders the one-word verdict, or ERROR: <message>.
func Plain(res inspector.Result) string {
	if res.IsError() {
		return "ERROR: " + res.Message
	}
	return string(res.Verdict)
}

// Structured renders the single-line object form. Embedded double quotes are
// replaced with single quotes; nothing else is escaped.
func Structured(res inspector.Result) string {
	if res.IsError() {
		return fmt.Sprintf(`{ "status": "%s", "message": "%s" }`, inspector.VerdictError, sanitize(res.Message))
	}
	return fmt.Sprintf(`{ "status": "%s", "value": "%s", "expected": "%s" }`,
		res.Verdict, sanitize(res.Observed), sanitize(res.Expected()))
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, `"`, `'`)
}

// Record is the full JSON form of a result.
type Record struct {
	Status      inspector.Verdict `json:"status"`
	Risk        string            `json:"risk"`
	Check       string            `json:"check"`
	Location    string            `json:"location"`
	ValueName   string            `json:"valueName"`
	Value       string            `json:"value,omitempty"`
	Expected    string            `json:"expected"`
	ValueType   store.ValueType   `json:"valueType,omitempty"`
	ErrorKind   string            `json:"errorKind,omitempty"`
	Message     string            `json:"message,omitempty"`
	Remediation string            `json:"remediation,omitempty"`
	Host        *hostinfo.Info    `json:"host,omitempty"`
	CheckedAt   string            `json:"checkedAt"`
	DurationMs  int64             `json:"durationMs"`
}

// Reporter writes results in a fixed format.
type Reporter struct {
	Format Format
	// Host is attached to JSON records when set.
	Host *hostinfo.Info
	// Now defaults to time.Now.
	Now func() time.Time
}

// NewRecord builds the JSON record for res.
func (r *Reporter) NewRecord(res inspector.Result) Record {
	now := time.Now
	if r.Now != nil {
		now = r.Now
	}

	return Record{
		Status:      res.Verdict,
		Risk:        Risk(res.Verdict),
		Check:       res.Request.Path(),
		Location:    res.Request.Location,
		ValueName:   res.Request.ValueName,
		Value:       res.Observed,
		Expected:    res.Expected(),
		ValueType:   res.ValueType,
		ErrorKind:   string(res.ErrorKind),
		Message:     res.Message,
		Remediation: Remediation(res),
		Host:        r.Host,
		CheckedAt:   now().UTC().Format(time.RFC3339),
		DurationMs:  res.Duration.Milliseconds(),
	}
}

// Write prints res to w followed by a newline.
func (r *Reporter) Write(w io.Writer, res inspector.Result) error {
	var line string
	switch r.Format {
	case FormatStructured:
		line = Structured(res)
	case FormatJSON:
		data, err := json.Marshal(r.NewRecord(res))
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		line = string(data)
	case FormatPlain, "":
		line = Plain(res)
	default:
		return fmt.Errorf("unknown output format %q", r.Format)
	}

	_, err := fmt.Fprintln(w, line)
	return err
}
