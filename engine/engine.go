// Package engine runs AI CLI agents as subprocesses and exposes one uniform
// execution contract across providers.
//
// The engine owns everything process-shaped: binary resolution, spawning,
// process-group termination, timeout enforcement, and output decoding.
// Protocol knowledge lives in the drivers; the engine only asks them for
// argument vectors and hands them raw output to normalize.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jnarowski/agentcmd"
	"github.com/jnarowski/agentcmd/internal/history"
	"github.com/jnarowski/agentcmd/internal/logger"
	"github.com/jnarowski/agentcmd/internal/metrics"
	"github.com/jnarowski/agentcmd/provider/claude"
	"github.com/jnarowski/agentcmd/provider/codex"
	"github.com/jnarowski/agentcmd/provider/gemini"
)

// Engine executes agent requests. It is safe for concurrent use; each
// Execute call runs one subprocess.
type Engine struct {
	drivers  map[agentcmd.Provider]agentcmd.Driver
	binaries map[agentcmd.Provider]string
	defaults defaults
	limiter  *rate.Limiter
	history  *history.Store
	table    *processTable
}

type defaults struct {
	permissionMode agentcmd.PermissionMode
	model          string
	timeout        time.Duration
}

// New creates an engine with the built-in claude, codex and gemini drivers
// registered. Options may replace drivers, pin binaries, or attach a
// history store.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		drivers:  make(map[agentcmd.Provider]agentcmd.Driver),
		binaries: make(map[agentcmd.Provider]string),
		limiter:  rate.NewLimiter(rate.Inf, 0),
		table:    newProcessTable(),
	}
	for _, d := range []agentcmd.Driver{claude.New(), codex.New(), gemini.New()} {
		e.drivers[d.Name()] = d
	}

	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Close kills any still-running subprocesses and releases the history store.
func (e *Engine) Close() error {
	e.table.killAll()
	if e.history != nil {
		return e.history.Close()
	}
	return nil
}

// Kill terminates a running execution by execution id or session id.
// Killing an execution that already finished is a no-op.
func (e *Engine) Kill(id string) bool {
	return e.table.kill(id)
}

// Execute runs one agent invocation to completion.
//
// The only error conditions are an unknown provider and a failed binary
// lookup (a CLINotFoundError). Everything that happens after spawn,
// including timeouts, non-zero exits and undecodable output, is reported
// through the returned ExecutionResult.
func (e *Engine) Execute(ctx context.Context, req agentcmd.ExecutionRequest) (*agentcmd.ExecutionResult, error) {
	driver, ok := e.drivers[req.Provider]
	if !ok {
		return nil, fmt.Errorf("%w: %q", agentcmd.ErrUnknownProvider, req.Provider)
	}

	e.applyDefaults(&req)
	e.clampToCapabilities(ctx, driver.Capabilities(), &req)

	execID := "exec_" + uuid.New().String()[:8]
	ctx = context.WithValue(ctx, logger.ContextKeyExecutionID, execID)
	ctx = context.WithValue(ctx, logger.ContextKeyProvider, string(req.Provider))

	sessionID := e.settleSessionID(driver.Capabilities(), req)

	binary, err := e.resolveBinary(driver)
	if err != nil {
		return nil, err
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("engine: spawn throttle: %w", err)
	}

	var stdin []byte
	if payloader, ok := driver.(agentcmd.StdinPayloader); ok {
		stdin, err = payloader.StdinPayload(req)
		if err != nil {
			return nil, fmt.Errorf("engine: build stdin payload: %w", err)
		}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if req.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	args := driver.CommandArgs(req, sessionID)
	logger.DebugContext(ctx, "spawning agent", "binary", binary, "args", args)

	started := time.Now()
	proc, err := startProcess(runCtx, binary, args, req.WorkingDir, stdin)
	if err != nil {
		return nil, fmt.Errorf("engine: start %s: %w", req.Provider, err)
	}

	e.table.add(execID, sessionID, proc)
	defer e.table.remove(execID)
	metrics.ActiveProcesses.WithLabelValues(string(req.Provider)).Inc()
	defer metrics.ActiveProcesses.WithLabelValues(string(req.Provider)).Dec()

	agg := &aggregator{
		provider:  req.Provider,
		sessionID: sessionID,
		onMessage: req.OnMessage,
	}

	var decodeErr error
	switch parser := driver.(type) {
	case agentcmd.LineParser:
		decodeErr = decodeStream(parser, proc.stdout, req.Provider, agg.record)
	case agentcmd.DocumentParser:
		decodeDocument(parser, proc.stdout, req.Provider, agg.record)
	default:
		decodeErr = fmt.Errorf("engine: driver %s has no parser", req.Provider)
	}

	exitCode, waitErr := proc.wait()
	duration := time.Since(started)

	kind, errMsg := classify(runCtx, proc, exitCode, waitErr, decodeErr)
	result := agg.finalize(req, exitCode, duration, proc.stderrString(), kind, errMsg)

	e.record(ctx, execID, req, result, started)
	e.observe(req.Provider, result)

	logger.InfoContext(ctx, "execution finished",
		"session_id", result.SessionID,
		"success", result.Success,
		"exit_code", result.ExitCode,
		"messages", len(result.Messages),
		"duration", result.Duration,
	)
	return result, nil
}

// StreamOutcome is the terminal value of a Stream call.
type StreamOutcome struct {
	Result *agentcmd.ExecutionResult
	Err    error
}

// Stream runs Execute in a goroutine and delivers messages over a channel
// as they are parsed. Both channels are closed when the execution ends;
// the outcome channel carries exactly one value.
func (e *Engine) Stream(ctx context.Context, req agentcmd.ExecutionRequest) (<-chan agentcmd.UnifiedMessage, <-chan StreamOutcome) {
	msgs := make(chan agentcmd.UnifiedMessage, 16)
	done := make(chan StreamOutcome, 1)

	chained := req.OnMessage
	req.OnMessage = func(m agentcmd.UnifiedMessage) {
		if chained != nil {
			chained(m)
		}
		select {
		case msgs <- m:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(done)
		result, err := e.Execute(ctx, req)
		close(msgs)
		done <- StreamOutcome{Result: result, Err: err}
	}()
	return msgs, done
}

func (e *Engine) applyDefaults(req *agentcmd.ExecutionRequest) {
	if req.PermissionMode == "" {
		req.PermissionMode = e.defaults.permissionMode
	}
	if req.Model == "" {
		req.Model = e.defaults.model
	}
	if req.Timeout == 0 {
		req.Timeout = e.defaults.timeout
	}
}

// clampToCapabilities silently drops request features the provider does not
// support. Dropping rather than erroring keeps the contract uniform; the
// caller detects a dropped resume by comparing session ids on the result.
func (e *Engine) clampToCapabilities(ctx context.Context, caps agentcmd.Capabilities, req *agentcmd.ExecutionRequest) {
	if req.Resume && !caps.Resume {
		logger.WarnContext(ctx, "provider cannot resume; starting fresh session")
		req.Resume = false
		req.SessionID = ""
	}
	if req.Continue && !caps.Continue {
		logger.WarnContext(ctx, "provider cannot continue; starting fresh session")
		req.Continue = false
	}
	if req.PermissionMode != "" && req.PermissionMode != agentcmd.PermissionDefault && !caps.PermissionModes {
		logger.WarnContext(ctx, "provider has no permission modes; dropping", "mode", req.PermissionMode)
		req.PermissionMode = ""
	}
	if len(req.Images) > 0 && !caps.Images {
		logger.WarnContext(ctx, "provider does not accept images; dropping", "count", len(req.Images))
		req.Images = nil
	}
}

// settleSessionID picks the id handed to the driver before spawn. Providers
// that mint their own id get none; their id arrives through the stream (or
// never, for providers that keep it off stdout).
func (e *Engine) settleSessionID(caps agentcmd.Capabilities, req agentcmd.ExecutionRequest) string {
	if caps.MintsSessionID {
		return ""
	}
	if req.Resume || req.Continue {
		return req.SessionID
	}
	if req.SessionID != "" {
		return req.SessionID
	}
	return uuid.New().String()
}

// resolveBinary finds the provider executable: explicit override first, then
// the driver's candidate list (PATH lookup for bare names, stat for paths).
func (e *Engine) resolveBinary(driver agentcmd.Driver) (string, error) {
	if override := e.binaries[driver.Name()]; override != "" {
		path := expandHome(override)
		if resolved, err := exec.LookPath(path); err == nil {
			return resolved, nil
		}
		return "", &agentcmd.CLINotFoundError{Provider: driver.Name(), Tried: []string{override}}
	}

	var tried []string
	for _, candidate := range driver.BinaryCandidates() {
		candidate = expandHome(candidate)
		tried = append(tried, candidate)
		if strings.ContainsRune(candidate, os.PathSeparator) {
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
			continue
		}
		if resolved, err := exec.LookPath(candidate); err == nil {
			return resolved, nil
		}
	}
	return "", &agentcmd.CLINotFoundError{Provider: driver.Name(), Tried: tried}
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return home + path[1:]
}

// classify maps exit state to the result error taxonomy. Timeout wins over
// everything: a killed process also reports a non-zero exit and a broken
// stream, and those are consequences, not causes.
func classify(runCtx context.Context, proc *process, exitCode int, waitErr, decodeErr error) (agentcmd.ErrorKind, string) {
	if proc.deadlineKilled() || errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return agentcmd.ErrorTimeout, "execution timed out"
	}
	if decodeErr != nil {
		return agentcmd.ErrorDecode, decodeErr.Error()
	}
	if exitCode != 0 {
		msg := fmt.Sprintf("process exited with code %d", exitCode)
		if waitErr != nil {
			var exitErr *exec.ExitError
			if !errors.As(waitErr, &exitErr) {
				msg = waitErr.Error()
			}
		}
		return agentcmd.ErrorExit, msg
	}
	return "", ""
}

// record persists the finished execution; history failures are logged only.
func (e *Engine) record(ctx context.Context, execID string, req agentcmd.ExecutionRequest, result *agentcmd.ExecutionResult, started time.Time) {
	if e.history == nil {
		return
	}
	err := e.history.Record(&history.Entry{
		ID:         execID,
		Provider:   string(req.Provider),
		SessionID:  result.SessionID,
		WorkingDir: req.WorkingDir,
		ExitCode:   result.ExitCode,
		Success:    result.Success,
		ErrorKind:  string(result.ErrorKind),
		Duration:   result.Duration,
		StartedAt:  started,
	})
	if err != nil {
		logger.WarnContext(ctx, "failed to record execution history", "error", err)
	}
}

func (e *Engine) observe(provider agentcmd.Provider, result *agentcmd.ExecutionResult) {
	status := "ok"
	if result.ErrorKind != "" {
		status = string(result.ErrorKind)
	}
	metrics.ExecutionsTotal.WithLabelValues(string(provider), status).Inc()
	metrics.ExecutionDuration.WithLabelValues(string(provider)).Observe(result.Duration.Seconds())
}

// HistoryEntry is one recorded execution, newest-first in History results.
type HistoryEntry struct {
	ID         string
	Provider   string
	SessionID  string
	WorkingDir string
	ExitCode   int
	Success    bool
	ErrorKind  string
	Duration   time.Duration
	StartedAt  time.Time
}

// History returns the most recent recorded executions, newest first.
// Returns nil when the engine has no history store.
func (e *Engine) History(limit int) ([]HistoryEntry, error) {
	if e.history == nil {
		return nil, nil
	}
	stored, err := e.history.List(limit)
	if err != nil {
		return nil, err
	}
	entries := make([]HistoryEntry, 0, len(stored))
	for _, s := range stored {
		entries = append(entries, HistoryEntry{
			ID:         s.ID,
			Provider:   s.Provider,
			SessionID:  s.SessionID,
			WorkingDir: s.WorkingDir,
			ExitCode:   s.ExitCode,
			Success:    s.Success,
			ErrorKind:  s.ErrorKind,
			Duration:   s.Duration,
			StartedAt:  s.StartedAt,
		})
	}
	return entries, nil
}
