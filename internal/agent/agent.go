// Package agent drives a computer-use model one turn at a time.
//
// An Agent sends the task to the remote completion service, interprets each
// response into a SessionState and, on every ContinueTask, performs what the
// model asked for before reporting back:
//
//   - a computer action is executed on the Computer and answered with a fresh
//     screenshot, acknowledging every pending safety check;
//   - a function call is executed through the ToolRegistry and answered with
//     its JSON result;
//   - anything else is answered with the user's text.
//
// # Basic Usage
//
//	a, err := agent.New(client, "computer-use-preview", scaler)
//	if err != nil {
//	    return err
//	}
//	if err := a.StartTask(ctx, "Open example.com"); err != nil {
//	    return err
//	}
//	for {
//	    if a.RequiresUserInput() {
//	        text := prompt()
//	        if err := a.ContinueTask(ctx, text); err != nil {
//	            return err
//	        }
//	        continue
//	    }
//	    if err := a.ContinueTask(ctx, ""); err != nil {
//	        return err
//	    }
//	}
//
// # Rate Limiting
//
// Requests rejected by the remote service with a rate limit error are re-issued
// after the wait named in the error message ("Please try again in 7s"), or
// after RetryConfig.DefaultDelay when none is given. When every attempt is
// rate limited the turn fails with ErrRetriesExhausted and the agent has no
// current state.
//
// An Agent serves a single conversation and is not safe for concurrent use.
package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/ryogok/computer-use-model/internal/computer"
	"github.com/ryogok/computer-use-model/internal/media"
	"github.com/ryogok/computer-use-model/internal/observability"
	"github.com/ryogok/computer-use-model/internal/retry"
)

// Agent starts and continues computer-use tasks.
type Agent struct {
	client   Client
	model    string
	computer computer.Computer
	tools    *ToolRegistry

	state *SessionState
	turn  int

	logger           *observability.Logger
	metrics          *observability.Metrics
	tracer           *observability.Tracer
	retry            RetryConfig
	sleep            func(ctx context.Context, d time.Duration) error
	reasoningSummary string
}

// New creates an Agent for model that acts on c.
func New(client Client, model string, c computer.Computer, opts ...Option) (*Agent, error) {
	if client == nil {
		return nil, ErrNoClient
	}
	if c == nil {
		return nil, ErrNoComputer
	}
	if model == "" {
		return nil, errors.New("model is required")
	}

	a := &Agent{
		client:           client,
		model:            model,
		computer:         c,
		tools:            NewToolRegistry(),
		logger:           observability.Discard(),
		retry:            DefaultRetryConfig(),
		sleep:            retry.Sleep,
		reasoningSummary: ReasoningSummaryConcise,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a, nil
}

// AddTool registers a function tool offered to the model on every request.
func (a *Agent) AddTool(def ToolDefinition, fn ToolFunc) error {
	return a.tools.Register(def, fn)
}

// Tools returns the computer-use descriptor followed by the registered
// function tools in registration order.
func (a *Agent) Tools() []ToolDescriptor {
	size := a.computer.Dimensions()
	descriptors := []ToolDescriptor{{
		Type:          ToolTypeComputer,
		DisplayWidth:  size.Width,
		DisplayHeight: size.Height,
		Environment:   a.computer.Environment(),
	}}
	return append(descriptors, a.tools.Descriptors()...)
}

// State returns the interpretation of the last response, or nil when there
// is no active task.
func (a *Agent) State() *SessionState { return a.state }

// RequiresUserInput reports whether the model is waiting for user text.
func (a *Agent) RequiresUserInput() bool {
	return a.state != nil && a.state.NextStep() == StepAwaitUserText
}

// RequiresConsent reports whether the next turn executes a computer action.
func (a *Agent) RequiresConsent() bool {
	return a.state != nil && a.state.NextStep() == StepComputerAction
}

// PendingSafetyChecks returns the checks that will be acknowledged by the next turn.
func (a *Agent) PendingSafetyChecks() []SafetyCheck {
	if a.state == nil {
		return nil
	}
	return a.state.PendingSafetyChecks()
}

// ReasoningSummary is the reasoning text of the last response.
func (a *Agent) ReasoningSummary() string {
	if a.state == nil {
		return ""
	}
	return a.state.ReasoningSummary()
}

// Message is the assistant text of the last response.
func (a *Agent) Message() string {
	if a.state == nil {
		return ""
	}
	return a.state.Message()
}

// StartTask begins a new conversation with the user's instructions.
func (a *Agent) StartTask(ctx context.Context, text string) error {
	a.state = nil
	a.turn = 0
	a.metrics.TaskStarted()

	state, err := a.send(ctx, &Request{
		Model:      a.model,
		InputText:  text,
		Tools:      a.Tools(),
		Truncation: TruncationAuto,
	})
	if err != nil {
		return err
	}
	a.state = state
	return nil
}

// ContinueTask performs the step the last response asked for and sends its
// outcome back. userText is only used when no action or tool call is pending.
//
// Failures while executing the action or tool keep the current state so the
// caller can inspect it. Once the request is issued the state is cleared and
// only replaced when a response is interpreted successfully.
func (a *Agent) ContinueTask(ctx context.Context, userText string) error {
	if a.state == nil {
		return ErrNoActiveTask
	}
	ctx = observability.AddResponseID(ctx, a.state.ResponseID())

	var item InputItem
	switch a.state.NextStep() {
	case StepComputerAction:
		screenshot, err := a.runAction(ctx, a.state.Action())
		if err != nil {
			return err
		}
		item = InputItem{
			Type:                     InputComputerCallOutput,
			CallID:                   a.state.CallID(),
			ScreenshotURL:            media.DataURL(screenshot),
			AcknowledgedSafetyChecks: a.state.PendingSafetyChecks(),
		}

	case StepTool:
		output, err := a.runTool(ctx, a.state.ToolName(), a.state.ToolArgs())
		if err != nil {
			return err
		}
		item = InputItem{
			Type:   InputFunctionCallOutput,
			CallID: a.state.CallID(),
			Output: output,
		}

	default:
		item = InputItem{Type: InputMessage, Role: "user", Text: userText}
	}

	previous := a.state.ResponseID()
	a.state = nil
	state, err := a.send(ctx, &Request{
		Model:              a.model,
		Input:              []InputItem{item},
		PreviousResponseID: previous,
		Tools:              a.Tools(),
		Truncation:         TruncationAuto,
		ReasoningSummary:   a.reasoningSummary,
	})
	if err != nil {
		return err
	}
	a.state = state
	return nil
}

// runAction executes action and captures the screenshot that answers it.
func (a *Agent) runAction(ctx context.Context, action computer.Action) (string, error) {
	kind := string(action.Kind())
	ctx, span := a.tracer.TraceAction(ctx, kind)
	defer span.End()

	a.logger.Info(ctx, "executing action", "action", kind, "args", computer.Args(action))

	start := time.Now()
	if err := computer.Execute(ctx, a.computer, action); err != nil {
		a.tracer.RecordError(span, err)
		a.metrics.RecordAction(kind, "error", time.Since(start).Seconds())
		a.metrics.RecordError("computer", kind)
		return "", &LoopError{Phase: PhaseAction, Turn: a.turn, Cause: err}
	}

	screenshot, err := a.computer.Screenshot(ctx)
	if err != nil {
		a.tracer.RecordError(span, err)
		a.metrics.RecordAction(kind, "error", time.Since(start).Seconds())
		a.metrics.RecordError("computer", "screenshot")
		return "", &LoopError{Phase: PhaseScreenshot, Turn: a.turn, Cause: err}
	}
	a.metrics.RecordAction(kind, "success", time.Since(start).Seconds())
	return screenshot, nil
}

// runTool executes a registered tool and returns its JSON encoded result.
func (a *Agent) runTool(ctx context.Context, name string, args map[string]any) (string, error) {
	ctx, span := a.tracer.TraceToolExecution(ctx, name)
	defer span.End()

	a.logger.Info(ctx, "executing tool", "tool", name, "args", args)

	start := time.Now()
	output, err := a.tools.Execute(ctx, name, args)
	if err != nil {
		if toolErr, ok := GetToolError(err); ok {
			toolErr.WithToolCallID(a.state.CallID())
		}
		a.tracer.RecordError(span, err)
		a.metrics.RecordToolExecution(name, "error", time.Since(start).Seconds())
		a.logger.Warn(ctx, "tool failed", "tool", name, "error", err)
		return "", &LoopError{Phase: PhaseTool, Turn: a.turn, Cause: err}
	}
	a.metrics.RecordToolExecution(name, "success", time.Since(start).Seconds())
	return output, nil
}

// send issues req, re-issuing it while the remote service rate limits, and
// interprets the response.
func (a *Agent) send(ctx context.Context, req *Request) (*SessionState, error) {
	cfg := retry.Config{
		MaxAttempts: a.retry.MaxAttempts,
		Retryable:   IsRateLimit,
		Sleep:       a.sleep,
		OnRetry: func(attempt int, err error, delay time.Duration) {
			a.logger.Info(ctx, "rate limit exceeded, waiting",
				"attempt", attempt,
				"wait_seconds", delay.Seconds(),
			)
			a.metrics.RecordRateLimit(delay.Seconds())
		},
	}

	resp, result := retry.DoWithValue(ctx, cfg, func() (*Response, error) {
		return a.createResponse(ctx, req)
	})
	if result.Exhausted {
		a.logger.Error(ctx, "max retries exceeded", "attempts", result.Attempts, "error", result.Err)
		a.metrics.RecordError("agent", "retries_exhausted")
		return nil, fmt.Errorf("%w after %d attempts: %w", ErrRetriesExhausted, result.Attempts, result.Err)
	}
	if result.Err != nil {
		a.metrics.RecordError("agent", "request")
		return nil, &LoopError{Phase: PhaseRequest, Turn: a.turn, Cause: result.Err}
	}

	state, err := Interpret(resp)
	if err != nil {
		a.metrics.RecordError("agent", "protocol")
		return nil, &LoopError{Phase: PhaseInterpret, Turn: a.turn, Cause: err}
	}
	a.turn++
	a.logger.Debug(ctx, "response interpreted",
		"response_id", state.ResponseID(),
		"next_step", string(state.NextStep()),
	)
	return state, nil
}

// createResponse performs a single request attempt.
func (a *Agent) createResponse(ctx context.Context, req *Request) (*Response, error) {
	ctx, span := a.tracer.TraceResponse(ctx, a.model, a.turn+1)
	defer span.End()

	start := time.Now()
	resp, err := a.client.CreateResponse(ctx, req)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		a.tracer.RecordError(span, err)
		if IsRateLimit(err) {
			a.metrics.RecordResponse(a.model, "rate_limited", elapsed)
			return nil, retry.After(err, a.rateLimitDelay(err))
		}
		a.metrics.RecordResponse(a.model, "error", elapsed)
		return nil, err
	}
	if resp == nil {
		return nil, &ProtocolError{Message: "nil response"}
	}

	a.tracer.SetAttributes(span, "response.id", resp.ID, "response.status", resp.Status)
	a.metrics.RecordResponse(a.model, resp.Status, elapsed)
	return resp, nil
}

// MaxRetryDelay bounds a server-directed wait. Longer waits fall back to the
// default delay.
const MaxRetryDelay = time.Hour

var retryAfterPattern = regexp.MustCompile(`Please try again in (\d+(?:\.\d+)?)(ms|s)`)

// rateLimitDelay extracts the wait time named in a rate limit error.
func (a *Agent) rateLimitDelay(err error) time.Duration {
	if d, ok := ParseRetryAfter(err.Error()); ok {
		return d
	}
	return a.retry.DefaultDelay
}

// ParseRetryAfter extracts the wait from messages such as
// "Please try again in 7s" or "Please try again in 250ms". Waits above
// MaxRetryDelay are rejected.
func ParseRetryAfter(message string) (time.Duration, bool) {
	match := retryAfterPattern.FindStringSubmatch(message)
	if match == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}
	unit := time.Second
	if match[2] == "ms" {
		unit = time.Millisecond
	}
	wait := value * float64(unit)
	if wait > float64(MaxRetryDelay) {
		return 0, false
	}
	return time.Duration(wait), true
}

// rateLimiter is implemented by client errors that signal rate limiting.
type rateLimiter interface {
	IsRateLimit() bool
}

// IsRateLimit reports whether err, or any error it wraps, is a rate limit error.
func IsRateLimit(err error) bool {
	var rl rateLimiter
	return errors.As(err, &rl) && rl.IsRateLimit()
}
