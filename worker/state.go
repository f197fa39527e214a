package worker

// State is a PlaybackWorker's lifecycle state, per spec.md §4.3's state
// machine: Idle -> Loading -> Ready -> (Playing <-> Paused), with Seeking
// interruptible from any state and returning to whichever non-Seeking
// state preceded it.
type State int

// PlaybackWorker states.
const (
	Idle State = iota
	Loading
	Ready
	Playing
	Paused
	Seeking
)

// String renders the state for logging.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Ready:
		return "ready"
	case Playing:
		return "playing"
	case Paused:
		return "paused"
	case Seeking:
		return "seeking"
	default:
		return "unknown"
	}
}
