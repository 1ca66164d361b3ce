package scenario

import "robotarena-sim/internal/world"

// BuiltIn returns predefined scripts usable by name from the CLI.
func BuiltIn() map[string]Scenario {
	return map[string]Scenario{
		"patrol": {
			Name:        "Patrol",
			Description: "Remote robots drive a loop while the autonomous fleet roams; the run completes after the loop.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Remote robots roll forward.",
					Actions:     []Action{{Command: string(world.StartMoveForward)}},
					Triggers:    []Trigger{{Event: EventTick, Value: 120, Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "Remote robots bank left.",
					Actions:     []Action{{Command: string(world.StartTurnLeft)}},
					Triggers:    []Trigger{{Event: EventTick, Value: 36, Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Straighten out and cruise.",
					Actions:     []Action{{Command: string(world.StopTurnLeft)}},
					Triggers:    []Trigger{{Event: EventTick, Value: 240, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Everyone stops and reports the task done.",
					Actions: []Action{
						{Command: string(world.StopMoveForward)},
						{CompleteTask: true},
					},
				},
			},
		},
		"crash-test": {
			Name:        "Crash Test",
			Description: "Remote robots drive straight ahead until the arena has seen enough collisions.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Full speed ahead.",
					Actions:     []Action{{Command: string(world.StartMoveForward)}},
					Triggers:    []Trigger{{Event: EventCollisions, Value: 10, Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "Reverse out of trouble.",
					Actions: []Action{
						{Command: string(world.StopMoveForward)},
						{Command: string(world.StartMoveBackward)},
					},
					Triggers: []Trigger{{Event: EventCollisions, Value: 25, Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Spin in place.",
					Actions: []Action{
						{Command: string(world.StopMoveBackward)},
						{Command: string(world.StartTurnRight)},
					},
					Triggers: []Trigger{{Event: EventTick, Value: 72, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Halt.",
					Actions:     []Action{{Command: string(world.StopTurnRight)}},
				},
			},
		},
		"endurance": {
			Name:        "Endurance",
			Description: "Let the autonomous fleet roam for five minutes, then mark every task complete.",
			Phases: []Phase{
				{
					Name:        "setup",
					Description: "Fleet warms up.",
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 60, Next: "escalation"}},
				},
				{
					Name:        "escalation",
					Description: "Remote robots join in.",
					Actions:     []Action{{Command: string(world.StartMoveForward)}},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 240, Next: "climax"}},
				},
				{
					Name:        "climax",
					Description: "Remote robots weave.",
					Actions:     []Action{{Command: string(world.StartTurnRight)}},
					Triggers:    []Trigger{{Event: EventTimeElapsed, Value: 300, Next: "resolution"}},
				},
				{
					Name:        "resolution",
					Description: "Tasks complete.",
					Actions:     []Action{{CompleteTask: true}},
				},
			},
		},
	}
}
