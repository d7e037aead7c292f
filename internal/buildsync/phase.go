package buildsync

import (
	"fmt"
	"log/slog"
)

// Phase is the state of a sync session
type Phase string

const (
	PhaseIdle        Phase = "idle"
	PhaseScanning    Phase = "scanning"
	PhaseUploading   Phase = "uploading"
	PhaseReconciling Phase = "reconciling"
	PhaseCommitting  Phase = "committing"
	PhaseDone        Phase = "done"
	PhaseFailed      Phase = "failed"
)

var phaseTransitions = map[Phase][]Phase{
	PhaseIdle:        {PhaseScanning},
	PhaseScanning:    {PhaseUploading, PhaseDone},
	PhaseUploading:   {PhaseReconciling, PhaseCommitting},
	PhaseReconciling: {PhaseCommitting},
	PhaseCommitting:  {PhaseDone},
}

func (p Phase) canTransition(to Phase) bool {
	if to == PhaseFailed {
		return p != PhaseDone && p != PhaseFailed
	}
	for _, next := range phaseTransitions[p] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are possible
func (p Phase) Terminal() bool {
	return p == PhaseDone || p == PhaseFailed
}

// session is the transient state of one Sync call
type session struct {
	buildID     int64
	rootDir     string
	prune       bool
	uploaded    int
	transferred int
	deleted     int
	bytes       int64
	phase       Phase
}

func newSession(req *SyncRequest) *session {
	return &session{
		buildID: req.BuildID,
		rootDir: req.RootDir,
		prune:   req.Prune,
		phase:   PhaseIdle,
	}
}

func (s *session) enter(to Phase) {
	if !s.phase.canTransition(to) {
		panic(fmt.Sprintf("buildsync: invalid phase transition %s -> %s", s.phase, to))
	}
	slog.Debug("sync phase", "build", s.buildID, "from", s.phase, "to", to)
	s.phase = to
}
