package mirror

// State is where the engine is in its polling cycle.
type State int

const (
	WaitingForMasterSession State = iota
	Monitoring
	SwitchingToSlave
	Mirroring
	SwitchingToMaster
	Aborted
)

func (s State) String() string {
	switch s {
	case WaitingForMasterSession:
		return "waiting_for_master_session"
	case Monitoring:
		return "monitoring"
	case SwitchingToSlave:
		return "switching_to_slave"
	case Mirroring:
		return "mirroring"
	case SwitchingToMaster:
		return "switching_to_master"
	case Aborted:
		return "aborted"
	default:
		return "unknown"
	}
}
