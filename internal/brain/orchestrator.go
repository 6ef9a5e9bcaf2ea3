package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"clawcraft.app/relay/common/id"
	"clawcraft.app/relay/common/logger"
	"clawcraft.app/relay/internal/export"
	"clawcraft.app/relay/internal/model"
	"clawcraft.app/relay/internal/service/chat"
	"clawcraft.app/relay/internal/service/issue_tracker"
)

// State is a step of the pipeline. Failed is reachable from every state.
type State string

const (
	StateReceived     State = "received"
	StateIssueFetched State = "issue_fetched"
	StatePromptBuilt  State = "prompt_built"
	StateGenerated    State = "generated"
	StateRepairing    State = "repairing"
	StateValidated    State = "validated"
	StateGated        State = "gated"
	StateDelivered    State = "delivered"
	StateFailed       State = "failed"
)

// Result is the outcome of a pipeline run up to, but excluding, delivery.
type Result struct {
	Issue    model.ParsedIssue
	Artifact model.Artifact
	Gate     GateResult
	Files    export.Files
	Repaired bool
}

// Report describes how a handled command ended.
type Report struct {
	CorrelationID string
	Transitions   []State
	Failure       FailureKind
	Err           error
}

// FinalState is the last state the command reached.
func (r Report) FinalState() State {
	if len(r.Transitions) == 0 {
		return StateReceived
	}
	return r.Transitions[len(r.Transitions)-1]
}

type Orchestrator struct {
	issues    issue_tracker.IssueTrackerService
	generator Generator
	chat      chat.ChatService
}

func NewOrchestrator(
	issues issue_tracker.IssueTrackerService,
	generator Generator,
	chatService chat.ChatService,
) *Orchestrator {
	return &Orchestrator{
		issues:    issues,
		generator: generator,
		chat:      chatService,
	}
}

type stateLog struct {
	transitions []State
}

func (s *stateLog) enter(ctx context.Context, state State) {
	s.transitions = append(s.transitions, state)
	slog.DebugContext(ctx, "pipeline state", "state", state)
}

// Handle runs one slash command to a terminal state and reports the outcome to
// the user. It never returns an error: failures are delivered through the
// command's response URL and described in the Report.
func (o *Orchestrator) Handle(ctx context.Context, cmd model.Command) Report {
	if cmd.CorrelationID == "" {
		cmd.CorrelationID = id.NewCorrelationID()
	}

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		CorrelationID: &cmd.CorrelationID,
		IssueKey:      &cmd.IssueKey,
		ChannelID:     &cmd.ChannelID,
		Component:     "clawcraft.brain.orchestrator",
	})

	sc := logger.StartSpan(ctx, "brain.handle_command")
	defer sc.End()
	ctx = sc.Context()

	slog.InfoContext(ctx, "handling command",
		"user_id", cmd.UserID,
		"team_id", cmd.TeamID,
		"script_requested", cmd.ScriptRequested)

	states := &stateLog{}
	report := Report{CorrelationID: cmd.CorrelationID}

	result, err := o.run(ctx, states, cmd.IssueKey, cmd.ScriptRequested)
	if err == nil {
		err = o.deliver(ctx, cmd, result)
		if err == nil {
			states.enter(ctx, StateDelivered)
			slog.InfoContext(ctx, "command completed",
				"repaired", result.Repaired,
				"automation_included", result.Artifact.Automation.Included)
			report.Transitions = states.transitions
			return report
		}
		err = newPipelineError(FailureServiceError, err)
	}

	sc.RecordError(err)
	states.enter(ctx, StateFailed)
	report.Transitions = states.transitions
	report.Failure = FailureKindOf(err)
	report.Err = err

	slog.ErrorContext(ctx, "command failed",
		"failure", report.Failure,
		"error", err)

	msg := UserMessage(err, cmd.IssueKey, cmd.CorrelationID)
	if postErr := o.chat.PostResponse(ctx, cmd.ResponseURL, msg); postErr != nil {
		slog.ErrorContext(ctx, "failed to post failure reply", "error", postErr)
	}

	return report
}

// Run executes fetch, prompt, generation, validation with a single repair, the
// automation gate and export formatting. Nothing is delivered. Errors are
// *PipelineError.
func (o *Orchestrator) Run(ctx context.Context, issueKey string, scriptRequested bool) (*Result, error) {
	return o.run(ctx, &stateLog{}, issueKey, scriptRequested)
}

func (o *Orchestrator) run(ctx context.Context, states *stateLog, issueKey string, scriptRequested bool) (*Result, error) {
	states.enter(ctx, StateReceived)

	issue, err := o.issues.GetIssue(ctx, issueKey)
	if err != nil {
		if errors.Is(err, issue_tracker.ErrIssueNotFound) {
			return nil, newPipelineError(FailureNotFound, err)
		}
		return nil, newPipelineError(FailureServiceError, fmt.Errorf("fetching issue: %w", err))
	}
	states.enter(ctx, StateIssueFetched)

	slog.InfoContext(ctx, "issue loaded",
		"issue_type", issue.IssueType,
		"summary", logger.Truncate(issue.Summary, 120),
		"has_steps", issue.HasStepsToReproduce())

	if !issue.IsSupported() {
		return nil, &PipelineError{
			Kind:      FailureUnsupportedType,
			IssueType: issue.IssueType,
			Err:       fmt.Errorf("%w: %q", ErrUnsupportedIssueType, issue.IssueType),
		}
	}

	platform := model.InferPlatformHint(issue)
	prompt := BuildPrompt(PromptInput{
		Issue:           issue,
		Platform:        platform,
		ScriptRequested: scriptRequested,
	})
	states.enter(ctx, StatePromptBuilt)

	slog.InfoContext(ctx, "prompt built",
		"prompt_version", promptVersion,
		"platform_hint", platform,
		"prompt_length", len(prompt.User))

	artifact, repaired, err := o.generateValidated(ctx, states, prompt)
	if err != nil {
		return nil, err
	}
	states.enter(ctx, StateValidated)

	gated, gate := ApplyAutomationGate(*artifact, issue, scriptRequested)
	states.enter(ctx, StateGated)

	if gate.Overridden {
		slog.InfoContext(ctx, "automation overridden by eligibility gate",
			"model_included", artifact.Automation.Included,
			"missing_steps", gate.MissingSteps)
	}

	files, err := export.Build(gated)
	if err != nil {
		return nil, newPipelineError(FailureServiceError, err)
	}

	return &Result{
		Issue:    issue,
		Artifact: gated,
		Gate:     gate,
		Files:    files,
		Repaired: repaired,
	}, nil
}

// generateValidated issues the generate call and, when its output is rejected,
// exactly one repair call. There is no further retry.
func (o *Orchestrator) generateValidated(ctx context.Context, states *stateLog, prompt Prompt) (*model.Artifact, bool, error) {
	first, err := o.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, false, newPipelineError(FailureServiceError, err)
	}
	states.enter(ctx, StateGenerated)

	artifact, err := ValidateResponse(first)
	if err == nil {
		return artifact, false, nil
	}

	slog.WarnContext(ctx, "invalid model output, attempting one repair",
		"reason", logger.Truncate(err.Error(), 300))
	states.enter(ctx, StateRepairing)

	repaired, err := o.generator.Repair(ctx, first)
	if err != nil {
		return nil, false, newPipelineError(FailureServiceError, err)
	}

	artifact, err = ValidateResponse(repaired)
	if err != nil {
		return nil, false, newPipelineError(FailureModelInvalidOutput,
			fmt.Errorf("%w: %w", ErrInvalidAfterRepair, err))
	}

	return artifact, true, nil
}

func (o *Orchestrator) deliver(ctx context.Context, cmd model.Command, result *Result) error {
	for _, f := range result.Files.All() {
		upload := chat.Upload{Filename: f.Filename, Content: f.Content}
		if err := o.chat.UploadFile(ctx, cmd.ChannelID, upload, cmd.ThreadTS); err != nil {
			return fmt.Errorf("delivering files: %w", err)
		}
	}

	summary := SummaryMessage(result, cmd.CorrelationID)
	if _, err := o.chat.PostMessage(ctx, cmd.ChannelID, summary, cmd.ThreadTS); err != nil {
		return fmt.Errorf("posting summary: %w", err)
	}

	return nil
}

// SummaryMessage renders the completion message posted after the files.
func SummaryMessage(result *Result, correlationID string) string {
	a := result.Artifact
	positive, negative, edge := a.ScenarioCounts()

	included := "No"
	if a.Automation.Included {
		included = "Yes"
	}
	if result.Gate.MissingSteps {
		included += " (missing Steps to Reproduce)"
	}

	return strings.Join([]string{
		"✅ ClawCraft complete",
		fmt.Sprintf("- Issue: %s (%s)", a.IssueKey, a.IssueType),
		fmt.Sprintf("- Scenarios: Positive=%d, Negative=%d, Edge=%d", positive, negative, edge),
		"- Automation script included: " + included,
		"- Correlation ID: " + correlationID,
	}, "\n")
}
