package world

// Command is a discrete remote-control instruction.
type Command string

const (
	StartMoveForward  Command = "start_move_forward"
	StopMoveForward   Command = "stop_move_forward"
	StartMoveBackward Command = "start_move_backward"
	StopMoveBackward  Command = "stop_move_backward"
	StartTurnLeft     Command = "start_turn_left"
	StopTurnLeft      Command = "stop_turn_left"
	StartTurnRight    Command = "start_turn_right"
	StopTurnRight     Command = "stop_turn_right"
)

// Commands lists every recognised command.
var Commands = []Command{
	StartMoveForward, StopMoveForward,
	StartMoveBackward, StopMoveBackward,
	StartTurnLeft, StopTurnLeft,
	StartTurnRight, StopTurnRight,
}

// ParseCommand reports whether s names a recognised command.
func ParseCommand(s string) (Command, bool) {
	for _, c := range Commands {
		if string(c) == s {
			return c, true
		}
	}
	return "", false
}

// RemoteAgent moves only as directed by commands. It does no sensing of its
// own; its path is still blocked by obstacles and other agents.
type RemoteAgent struct {
	body
	// TurnRate is the rotation in degrees applied per tick while turning.
	TurnRate float64

	forward, backward bool
	left, right       bool
	currentSpeed      float64
}

func (r *RemoteAgent) Kind() Kind { return KindRemote }

// ProcessCommand updates the movement intents. Unknown commands are ignored
// and reported as false.
func (r *RemoteAgent) ProcessCommand(cmd Command) bool {
	switch cmd {
	case StartMoveForward:
		r.forward = true
	case StopMoveForward:
		r.forward = false
	case StartMoveBackward:
		r.backward = true
	case StopMoveBackward:
		r.backward = false
	case StartTurnLeft:
		r.left = true
	case StopTurnLeft:
		r.left = false
	case StartTurnRight:
		r.right = true
	case StopTurnRight:
		r.right = false
	default:
		return false
	}
	return true
}

// Intents returns the four movement flags in forward, backward, left, right order.
func (r *RemoteAgent) Intents() (forward, backward, left, right bool) {
	return r.forward, r.backward, r.left, r.right
}

// CurrentSpeed is the signed speed applied on the last tick.
func (r *RemoteAgent) CurrentSpeed() float64 { return r.currentSpeed }

// HandleCollision is a no-op; remote agents do not self-correct.
func (r *RemoteAgent) HandleCollision() {}

// Move applies the current intents. Forward wins over backward and left wins
// over right when both of a pair are set.
func (r *RemoteAgent) Move(v View) {
	switch {
	case r.forward:
		r.currentSpeed = r.speed
	case r.backward:
		r.currentSpeed = -r.speed
	default:
		r.currentSpeed = 0
	}
	switch {
	case r.left:
		r.Rotate(-r.TurnRate)
	case r.right:
		r.Rotate(r.TurnRate)
	}
	if r.currentSpeed == 0 {
		r.pos = clampToArena(v, r.pos)
		return
	}
	r.pos = advance(v, r, r.currentSpeed, r.params.StepSize)
}
