package service

// NodeState describes one logical service's lifecycle state.
type NodeState uint8

const (
	// Stopped means no matching process exists.
	Stopped NodeState = iota
	// Starting means the process responds but reports it is not ready yet.
	Starting
	// Running means the process exists and passes its protocol probe.
	Running
	// Zombie means the process exists but fails its protocol probe.
	Zombie
	// Unknown means probing itself failed.
	Unknown
)

func (s NodeState) String() string {
	switch s {
	case Stopped:
		return "Stopped"
	case Starting:
		return "Starting"
	case Running:
		return "Running"
	case Zombie:
		return "Zombie"
	default:
		return "Unknown"
	}
}
