// Package jq filters DingTalk JSON responses with jq expressions.
package jq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/itchyny/gojq"
)

const (
	// DefaultTimeout bounds the evaluation of one expression.
	DefaultTimeout = 1 * time.Second

	// DefaultMaxInputSize is the largest response body accepted (10MB).
	DefaultMaxInputSize = 10 * 1024 * 1024
)

// ErrInputTooLarge is returned when the input exceeds the executor limit.
var ErrInputTooLarge = errors.New("jq input too large")

// Executor evaluates jq expressions with a timeout and an input size limit.
type Executor struct {
	timeout      time.Duration
	maxInputSize int64
}

// NewExecutor creates an executor. Zero values select the defaults.
func NewExecutor(timeout time.Duration, maxInputSize int64) *Executor {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	if maxInputSize == 0 {
		maxInputSize = DefaultMaxInputSize
	}

	return &Executor{
		timeout:      timeout,
		maxInputSize: maxInputSize,
	}
}

// Filter decodes body as JSON and runs expression against it. Numbers are
// decoded exactly so 64-bit department and task IDs survive.
func (e *Executor) Filter(ctx context.Context, expression string, body []byte) ([]any, error) {
	if int64(len(body)) > e.maxInputSize {
		return nil, fmt.Errorf("%w: %d bytes exceeds %d", ErrInputTooLarge, len(body), e.maxInputSize)
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var data any
	if err := dec.Decode(&data); err != nil {
		return nil, fmt.Errorf("decode input: %w", err)
	}
	return e.Execute(ctx, expression, data)
}

// Execute runs expression against already decoded data and collects every
// result it emits.
func (e *Executor) Execute(ctx context.Context, expression string, data any) ([]any, error) {
	if expression == "" {
		return []any{data}, nil
	}

	code, err := compile(expression)
	if err != nil {
		return nil, err
	}

	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var results []any
	iter := code.RunWithContext(execCtx, data)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, isErr := v.(error); isErr {
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, fmt.Errorf("execution timeout after %v", e.timeout)
			}
			var halt *gojq.HaltError
			if errors.As(err, &halt) && halt.Value() == nil {
				break
			}
			return nil, err
		}
		results = append(results, v)
	}
	return results, nil
}

// Validate compiles expression without running it, so flag errors surface
// before any request is sent.
func (e *Executor) Validate(expression string) error {
	if expression == "" {
		return nil
	}
	_, err := compile(expression)
	return err
}

func compile(expression string) (*gojq.Code, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("invalid jq expression: %w", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, fmt.Errorf("jq compilation failed: %w", err)
	}
	return code, nil
}
