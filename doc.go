// Package agentcmd defines the shared vocabulary for driving AI command-line
// agents through one uniform execution contract.
//
// The package holds the canonical data model ([UnifiedMessage],
// [ContentBlock]), the execution contract ([ExecutionRequest],
// [ExecutionResult]), the static per-provider capability matrix, and the
// [Driver] interface that provider backends implement. The machinery that
// actually spawns subprocesses and decodes their output lives in the engine
// package; provider protocol translation lives under provider/.
//
// Every provider emits a structurally different protocol: Claude Code and
// Codex stream newline-delimited JSON events, while Gemini produces one
// complete JSON document per run. Drivers translate those native shapes into
// UnifiedMessage values so callers never branch on provider identity.
package agentcmd
