package engine

import "sync"

// processTable tracks running subprocesses so they can be killed by id and
// reaped on engine close.
type processTable struct {
	mu      sync.Mutex
	running map[string]*tableEntry
}

type tableEntry struct {
	sessionID string
	proc      *process
}

func newProcessTable() *processTable {
	return &processTable{running: make(map[string]*tableEntry)}
}

func (t *processTable) add(execID, sessionID string, proc *process) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.running[execID] = &tableEntry{sessionID: sessionID, proc: proc}
}

func (t *processTable) remove(execID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.running, execID)
}

// kill terminates the execution matching id, which may be an execution id
// or a session id. Reports whether anything was killed.
func (t *processTable) kill(id string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	for execID, entry := range t.running {
		if execID == id || (entry.sessionID != "" && entry.sessionID == id) {
			entry.proc.killGroup()
			return true
		}
	}
	return false
}

func (t *processTable) killAll() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, entry := range t.running {
		entry.proc.killGroup()
	}
}
