package bootstrap

// Phase is the bootstrap lifecycle state shown to the presentation layer.
type Phase int

const (
	FetchingBinary Phase = iota
	LoadingApp
	Loaded
)

func (p Phase) String() string {
	switch p {
	case FetchingBinary:
		return "FetchingBinary"
	case LoadingApp:
		return "LoadingApp"
	case Loaded:
		return "Loaded"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no phase follows p.
func (p Phase) Terminal() bool { return p == Loaded }
