package orchestrator

// State is a step of the build-then-run workflow.
type State int

const (
	StateIdle State = iota
	StateBuilding
	StateStreamingPayload
	StateBuildWait
	StateRunning
	StateDone
	StateErrorExit
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBuilding:
		return "building"
	case StateStreamingPayload:
		return "streaming_payload"
	case StateBuildWait:
		return "build_wait"
	case StateRunning:
		return "running"
	case StateDone:
		return "done"
	case StateErrorExit:
		return "error_exit"
	default:
		return "unknown"
	}
}

// next lists the forward transitions; StateErrorExit is reachable from any
// state and is not listed.
var next = map[State]State{
	StateIdle:             StateBuilding,
	StateBuilding:         StateStreamingPayload,
	StateStreamingPayload: StateBuildWait,
	StateBuildWait:        StateRunning,
	StateRunning:          StateDone,
}

func canTransition(from, to State) bool {
	if to == StateErrorExit {
		return from != StateDone && from != StateErrorExit
	}
	return next[from] == to
}
