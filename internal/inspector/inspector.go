// Package inspector checks a single configuration value against an expected
// value and returns a verdict.
package inspector

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/breeze-rmm/registry-inspector/internal/logging"
	"github.com/breeze-rmm/registry-inspector/internal/store"
)

// Default check: User Account Control enablement.
const (
	DefaultLocation  = `SOFTWARE\Microsoft\Windows\CurrentVersion\Policies\System`
	DefaultValueName = "EnableLUA"
	DefaultExpected  = "1"
)

// Request names the value to check and what it should be.
type Request struct {
	Location  string `json:"location"`
	ValueName string `json:"valueName"`
	Expected  string `json:"expected"`
}

// DefaultRequest returns the UAC check used when no request is given.
func DefaultRequest() Request {
	return Request{
		Location:  DefaultLocation,
		ValueName: DefaultValueName,
		Expected:  DefaultExpected,
	}
}

// Path returns location\valueName for display.
func (r Request) Path() string {
	return r.Location + `\` + r.ValueName
}

// Verdict is the outcome of a check.
type Verdict string

const (
	VerdictSecure     Verdict = "SECURE"
	VerdictVulnerable Verdict = "VULNERABLE"
	VerdictError      Verdict = "ERROR"
)

// ErrorKind classifies an ERROR verdict.
type ErrorKind string

const (
	ErrorLocationNotFound ErrorKind = "location_not_found"
	ErrorValueNotFound    ErrorKind = "value_not_found"
	ErrorReadFailure      ErrorKind = "read_failure"
)

// Messages printed for the not-found error kinds.
const (
	MessageLocationNotFound = "Key not found"
	MessageValueNotFound    = "Value not found"
)

// Result is the outcome of one Inspect call.
type Result struct {
	Request   Request
	Verdict   Verdict
	Observed  string
	ValueType store.ValueType
	ErrorKind ErrorKind
	Message   string
	Duration  time.Duration
}

// Expected returns the expected value the check ran against.
func (r Result) Expected() string {
	return r.Request.Expected
}

// IsError reports whether the check could not be evaluated.
func (r Result) IsError() bool {
	return r.Verdict == VerdictError
}

// Inspector runs checks against a store.
type Inspector struct {
	store  store.Store
	logger *zap.Logger
}

// New returns an Inspector reading from s.
func New(s store.Store, logger *zap.Logger) *Inspector {
	return &Inspector{
		store:  s,
		logger: logging.Component(logger, "inspector"),
	}
}

// Inspect opens req.Location, reads req.ValueName and compares its string
// form with req.Expected. It never returns an error or panics; failures are
// reported as an ERROR verdict.
func (i *Inspector) Inspect(req Request) (result Result) {
	start := time.Now()
	log := i.logger.With(
		zap.String(logging.KeyLocation, req.Location),
		zap.String(logging.KeyValueName, req.ValueName),
	)

	defer func() {
		if r := recover(); r != nil {
			log.Error("panic during inspection", zap.Any("panic", r))
			result = ReadFailure(req, fmt.Sprintf("unexpected failure: %v", r))
		}
		result.Duration = time.Since(start)
		log.Debug("check completed",
			zap.String(logging.KeyStatus, string(result.Verdict)),
			zap.Int64(logging.KeyDurationMs, result.Duration.Milliseconds()))
	}()

	if i.store == nil {
		return ReadFailure(req, "no configuration store available")
	}

	handle, err := i.store.OpenReadOnly(req.Location)
	if err != nil {
		if errors.Is(err, store.ErrLocationNotFound) {
			log.Debug("location not found", zap.Error(err))
			return Result{Request: req, Verdict: VerdictError, ErrorKind: ErrorLocationNotFound, Message: MessageLocationNotFound}
		}
		log.Debug("failed to open location", zap.Error(err))
		return ReadFailure(req, err.Error())
	}
	defer func() {
		if err := handle.Close(); err != nil {
			log.Warn("failed to close location", zap.Error(err))
		}
	}()

	value, err := handle.GetValue(req.ValueName)
	if err != nil {
		if errors.Is(err, store.ErrValueNotFound) {
			log.Debug("value not found", zap.Error(err))
			return Result{Request: req, Verdict: VerdictError, ErrorKind: ErrorValueNotFound, Message: MessageValueNotFound}
		}
		log.Debug("failed to read value", zap.Error(err))
		return ReadFailure(req, err.Error())
	}

	observed := value.String()
	verdict := VerdictVulnerable
	if observed == req.Expected {
		verdict = VerdictSecure
	}

	return Result{
		Request:   req,
		Verdict:   verdict,
		Observed:  observed,
		ValueType: value.Type,
	}
}

// ReadFailure builds an ERROR result for a failure other than not-found.
func ReadFailure(req Request, message string) Result {
	return Result{
		Request:   req,
		Verdict:   VerdictError,
		ErrorKind: ErrorReadFailure,
		Message:   message,
	}
}
