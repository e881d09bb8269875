package remote

// Command is a user intent received from a remote or keyboard.
type Command int

const (
	CmdStop Command = iota
	CmdForward
	CmdBackward
	CmdLeft
	CmdRight
	CmdTwistLeft
	CmdTwistRight
	CmdCenter
	CmdBodyUp
	CmdBodyDown
	CmdTall
	CmdLow
	CmdFaster
	CmdSlower
	CmdToggleGait
	CmdShutdown
)

var commandNames = map[Command]string{
	CmdStop:       "stop",
	CmdForward:    "forward",
	CmdBackward:   "backward",
	CmdLeft:       "left",
	CmdRight:      "right",
	CmdTwistLeft:  "twist left",
	CmdTwistRight: "twist right",
	CmdCenter:     "center",
	CmdBodyUp:     "body up",
	CmdBodyDown:   "body down",
	CmdTall:       "tall",
	CmdLow:        "low",
	CmdFaster:     "faster",
	CmdSlower:     "slower",
	CmdToggleGait: "toggle gait",
	CmdShutdown:   "shutdown",
}

func (c Command) String() string {
	if name, ok := commandNames[c]; ok {
		return name
	}
	return "unknown"
}

// Continuous reports whether the command repeats until another one arrives.
func (c Command) Continuous() bool {
	switch c {
	case CmdForward, CmdBackward, CmdLeft, CmdRight, CmdTwistLeft, CmdTwistRight:
		return true
	}
	return false
}
