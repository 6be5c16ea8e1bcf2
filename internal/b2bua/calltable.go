package b2bua

import "sync"

// callTable is the process-wide arena of live Calls (spec.md's Design
// Notes: "a process-wide table keyed by call_id owns Call entries; other
// subsystems hold only the id"). It also indexes by each leg's own SIP
// Call-ID, since Leg B's dialog has a different Call-ID than the Call's
// own id (which is taken from Leg A's Call-ID).
type callTable struct {
	mu          sync.RWMutex
	byCallID    map[string]*Call
	byDialogID  map[string]string // dialog Call-ID -> call.ID
}

func newCallTable() *callTable {
	return &callTable{
		byCallID:   make(map[string]*Call),
		byDialogID: make(map[string]string),
	}
}

func (t *callTable) put(c *Call) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byCallID[c.ID] = c
	t.byDialogID[c.ID] = c.ID
	if c.LegB != nil && c.LegB.Dialog != nil {
		t.byDialogID[c.LegB.Dialog.CallID] = c.ID
	}
}

// indexLegB registers Leg B's dialog Call-ID against the owning Call,
// once it is known (Leg B is attached after origination succeeds).
func (t *callTable) indexLegB(call *Call) {
	if call.LegB == nil || call.LegB.Dialog == nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byDialogID[call.LegB.Dialog.CallID] = call.ID
}

func (t *callTable) get(callID string) (*Call, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	c, ok := t.byCallID[callID]
	return c, ok
}

func (t *callTable) byDialogCallID(dialogCallID string) (*Call, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byDialogID[dialogCallID]
	if !ok {
		return nil, false
	}
	c, ok := t.byCallID[id]
	return c, ok
}

func (t *callTable) delete(callID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c, ok := t.byCallID[callID]
	if !ok {
		return
	}
	delete(t.byCallID, callID)
	delete(t.byDialogID, callID)
	if c.LegB != nil && c.LegB.Dialog != nil {
		delete(t.byDialogID, c.LegB.Dialog.CallID)
	}
}

func (t *callTable) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byCallID)
}

func (t *callTable) snapshots() []Snapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Snapshot, 0, len(t.byCallID))
	for _, c := range t.byCallID {
		out = append(out, c.Snapshot())
	}
	return out
}
