package submissionmanager

import "fmt"

// AdmissionRejected is returned synchronously to the submitter; nothing was
// queued and no identifier was minted.
type AdmissionRejected struct {
	Reason string
}

func (e *AdmissionRejected) Error() string {
	return e.Reason
}

// Gate enforces the step budget and payload size limits. Both limits are
// exclusive: a value equal to the maximum is rejected.
type Gate struct {
	ticksMax    uint32
	codesizeMax uint32
}

func NewGate(ticksMax, codesizeMax uint32) *Gate {
	return &Gate{ticksMax: ticksMax, codesizeMax: codesizeMax}
}

func (g *Gate) Check(ticks uint32, size int) error {
	if ticks >= g.ticksMax {
		return &AdmissionRejected{Reason: fmt.Sprintf("ticks number exceeds %d", g.ticksMax)}
	}
	if size < 0 || uint64(size) >= uint64(g.codesizeMax) {
		return &AdmissionRejected{Reason: fmt.Sprintf("file length exceeds %d", g.codesizeMax)}
	}
	return nil
}
