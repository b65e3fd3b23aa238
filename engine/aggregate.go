package engine

import (
	"time"

	"github.com/jnarowski/agentcmd"
	"github.com/jnarowski/agentcmd/internal/jsonx"
	"github.com/jnarowski/agentcmd/internal/metrics"
)

// aggregator collects records in arrival order while an execution runs and
// assembles the final result.
type aggregator struct {
	provider  agentcmd.Provider
	sessionID string
	onMessage func(agentcmd.UnifiedMessage)
	messages  []agentcmd.UnifiedMessage
}

// record consumes one parsed record. Session ids reported by the provider
// supersede the engine-settled one; messages fire the observer synchronously
// so callers see them in emission order.
func (a *aggregator) record(rec agentcmd.Record) {
	if rec.SessionID != "" {
		a.sessionID = rec.SessionID
	}
	if rec.Message == nil {
		return
	}
	a.messages = append(a.messages, *rec.Message)
	metrics.MessagesParsed.WithLabelValues(string(a.provider)).Inc()
	if a.onMessage != nil {
		a.onMessage(*rec.Message)
	}
}

// finalize builds the result. Messages parsed before a failure are always
// preserved; kind is empty on success.
func (a *aggregator) finalize(req agentcmd.ExecutionRequest, exitCode int, duration time.Duration, stderr string, kind agentcmd.ErrorKind, errMsg string) *agentcmd.ExecutionResult {
	result := &agentcmd.ExecutionResult{
		Success:   kind == "",
		ExitCode:  exitCode,
		SessionID: a.sessionID,
		Duration:  duration,
		Messages:  a.messages,
		Stderr:    stderr,
		ErrorKind: kind,
		Error:     errMsg,
	}
	result.Data = extractData(req, result.LastAssistantText())
	return result
}

// extractData derives the convenience payload from the trailing assistant
// text. JSON extraction and schema validation never fail the execution:
// anything that does not parse or validate falls back to the raw text.
func extractData(req agentcmd.ExecutionRequest, text string) any {
	if text == "" {
		return nil
	}
	if req.DataFormat != agentcmd.DataJSON {
		return text
	}

	value, ok := jsonx.Extract(text)
	if !ok {
		return text
	}
	if req.DataSchema != nil {
		resolved, err := req.DataSchema.Resolve(nil)
		if err != nil || resolved.Validate(value) != nil {
			return text
		}
	}
	return value
}
