package monitor

// Kind classifies a ChangeEvent.
type Kind int

const (
	// Reset means events were lost and all state should be rebuilt.
	Reset Kind = iota
	Added
	Removed
	Changed
	Renamed
)

func (k Kind) String() string {
	switch k {
	case Reset:
		return "reset"
	case Added:
		return "added"
	case Removed:
		return "removed"
	case Changed:
		return "changed"
	case Renamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// ChangeEvent describes one change under the watched root. EntryPath and
// OldEntryPath hold the tracked entry directory containing FullPath and
// OldPath, or are empty when no entry contains them.
type ChangeEvent struct {
	Kind         Kind
	FullPath     string
	OldPath      string
	EntryPath    string
	OldEntryPath string
}

// Resolved reports whether the event maps to a tracked entry.
func (e ChangeEvent) Resolved() bool {
	return e.EntryPath != ""
}

// Mode is the monitor's current watching strategy.
type Mode int

const (
	Unwatched Mode = iota
	NativeWatching
	Polling
)

func (m Mode) String() string {
	switch m {
	case NativeWatching:
		return "native"
	case Polling:
		return "polling"
	default:
		return "unwatched"
	}
}

// Resolver maps a changed path to the tracked entry directory containing it.
// manifest.Store implements it.
type Resolver interface {
	FindEntryPathForChange(fullPath string) (string, bool)
}
