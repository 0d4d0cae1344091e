package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ryogok/computer-use-model/internal/agent"
)

// taskRunner is the part of *agent.Agent the driver loop needs.
type taskRunner interface {
	StartTask(ctx context.Context, text string) error
	ContinueTask(ctx context.Context, userText string) error
	State() *agent.SessionState
	RequiresUserInput() bool
	RequiresConsent() bool
	PendingSafetyChecks() []agent.SafetyCheck
	ReasoningSummary() string
	Message() string
}

var _ taskRunner = (*agent.Agent)(nil)

// drive starts the task and keeps continuing it until the user quits, input
// runs out or a turn fails.
func drive(ctx context.Context, r taskRunner, p *prompter, instructions string, autoplay bool) error {
	fmt.Fprintf(p.out, "User: %s\n", instructions)
	if err := r.StartTask(ctx, instructions); err != nil {
		return err
	}
	report(p.out, r)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var (
			userText string
			err      error
		)
		switch {
		case r.RequiresConsent():
			if autoplay {
				break
			}
			if checks := r.PendingSafetyChecks(); len(checks) > 0 {
				fmt.Fprintln(p.out, "Safety checks:")
				for _, check := range checks {
					fmt.Fprintf(p.out, "  - %s: %s\n", check.Code, check.Message)
				}
				_, err = p.ask("Press Enter to acknowledge and continue...")
			} else {
				_, err = p.ask("Press Enter to run computer tool...")
			}
		case r.RequiresUserInput() || idle(r):
			userText, err = p.ask("User: ")
			if err == nil && isQuit(userText) {
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := r.ContinueTask(ctx, userText); err != nil {
			return err
		}
		fmt.Fprintln(p.out)
		report(p.out, r)
	}
}

func idle(r taskRunner) bool {
	state := r.State()
	return state != nil && state.NextStep() == agent.StepIdle
}

func report(out io.Writer, r taskRunner) {
	if summary := r.ReasoningSummary(); summary != "" {
		fmt.Fprintf(out, "Action: %s\n", summary)
	}
	if message := r.Message(); message != "" {
		fmt.Fprintf(out, "Agent: %s\n\n", message)
	}
}
