package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error kinds surfaced by the pipeline.
var (
	ErrDataUnavailable      = errors.New("data unavailable")
	ErrInsufficientFeatures = errors.New("insufficient features")
	ErrLabelDegenerate      = errors.New("label degenerate")
	ErrModelNotFitted       = errors.New("model not fitted")
	ErrArtifactCorrupt      = errors.New("artifact corrupt")
	ErrCapitalExhausted     = errors.New("capital exhausted")
	ErrConfigMissing        = errors.New("config missing")

	// Bar Source failures.
	ErrUnknownSymbol = errors.New("unknown symbol")
	ErrNetwork       = errors.New("network error")
)

// PipelineError attaches symbol, stage and bar date to an error kind.
type PipelineError struct {
	Kind   error
	Symbol string
	Stage  string
	Date   time.Time
	Msg    string
	Err    error
}

// NewPipelineError creates an error of the given kind.
func NewPipelineError(kind error, stage, symbol string) *PipelineError {
	return &PipelineError{Kind: kind, Stage: stage, Symbol: symbol}
}

// WithDate sets the offending bar date.
func (e *PipelineError) WithDate(d time.Time) *PipelineError {
	e.Date = d
	return e
}

// WithMessage sets a human-readable detail.
func (e *PipelineError) WithMessage(format string, a ...interface{}) *PipelineError {
	e.Msg = fmt.Sprintf(format, a...)
	return e
}

// WithError wraps an underlying error.
func (e *PipelineError) WithError(err error) *PipelineError {
	e.Err = err
	return e
}

func (e *PipelineError) Error() string {
	var b strings.Builder
	b.WriteString(e.Stage)
	if e.Symbol != "" {
		b.WriteString("[" + e.Symbol + "]")
	}
	if !e.Date.IsZero() {
		b.WriteString(" " + e.Date.Format("2006-01-02"))
	}
	b.WriteString(": ")
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Msg != "" {
		b.WriteString(": " + e.Msg)
	}
	if e.Err != nil {
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *PipelineError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// KindOf returns the first known error kind found in err's chain, or nil.
func KindOf(err error) error {
	for _, k := range []error{
		ErrDataUnavailable, ErrInsufficientFeatures, ErrLabelDegenerate, ErrModelNotFitted,
		ErrArtifactCorrupt, ErrCapitalExhausted, ErrConfigMissing, ErrUnknownSymbol, ErrNetwork,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
