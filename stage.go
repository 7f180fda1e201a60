package sepadoc

import (
	"fmt"

	"github.com/luno/jettison/errors"
	"github.com/luno/jettison/j"
)

// Stage is one of the three units of work the Pipeline runs.
type Stage int

const (
	StageUnknown  Stage = 0
	StageFetch    Stage = 1
	StageGenerate Stage = 2
	StageSend     Stage = 3
	stageSentinel Stage = 4
)

func (s Stage) String() string {
	switch s {
	case StageUnknown:
		return "Unknown"
	case StageFetch:
		return "Fetch"
	case StageGenerate:
		return "Generate"
	case StageSend:
		return "Send"
	default:
		return fmt.Sprintf("Stage(%d)", s)
	}
}

func (s Stage) Valid() bool {
	return s > StageUnknown && s < stageSentinel
}

// activeState is the StageState the pipeline holds while s is running.
func (s Stage) activeState() StageState {
	switch s {
	case StageFetch:
		return StageStateFetching
	case StageGenerate:
		return StageStateGenerating
	case StageSend:
		return StageStateSending
	default:
		return StageStateUnknown
	}
}

type StageState int

const (
	StageStateUnknown    StageState = 0
	StageStateIdle       StageState = 1
	StageStateFetching   StageState = 2
	StageStateGenerating StageState = 3
	StageStateSending    StageState = 4
	StageStateCancelled  StageState = 5
	StageStateCompleted  StageState = 6
	StageStateFailed     StageState = 7
	stageStateSentinel   StageState = 8
)

func (ss StageState) String() string {
	switch ss {
	case StageStateUnknown:
		return "Unknown"
	case StageStateIdle:
		return "Idle"
	case StageStateFetching:
		return "Fetching"
	case StageStateGenerating:
		return "Generating"
	case StageStateSending:
		return "Sending"
	case StageStateCancelled:
		return "Cancelled"
	case StageStateCompleted:
		return "Completed"
	case StageStateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("StageState(%d)", ss)
	}
}

func (ss StageState) Valid() bool {
	return ss > StageStateUnknown && ss < stageStateSentinel
}

// Active reports whether a stage is running.
func (ss StageState) Active() bool {
	switch ss {
	case StageStateFetching, StageStateGenerating, StageStateSending:
		return true
	default:
		return false
	}
}

// Finished is true for the states a stage ends in before the pipeline returns to Idle.
func (ss StageState) Finished() bool {
	switch ss {
	case StageStateCancelled, StageStateCompleted, StageStateFailed:
		return true
	default:
		return false
	}
}

func validateStageTransition(from, to StageState) error {
	valid, ok := stageTransitions[from]
	if !ok {
		return errors.Wrap(ErrInvalidStageTransition, "current state has no transitions", j.MKV{
			"from": from.String(),
			"to":   to.String(),
		})
	}

	if !valid[to] {
		msg := fmt.Sprintf("current state cannot transition to %v", to.String())
		return errors.Wrap(ErrInvalidStageTransition, msg, j.MKV{
			"from": from.String(),
			"to":   to.String(),
		})
	}

	return nil
}

var stageTransitions = map[StageState]map[StageState]bool{
	StageStateIdle: {
		StageStateFetching:   true,
		StageStateGenerating: true,
		StageStateSending:    true,
	},
	StageStateFetching: {
		StageStateCompleted: true,
		StageStateCancelled: true,
		StageStateFailed:    true,
	},
	StageStateGenerating: {
		StageStateCompleted: true,
		StageStateCancelled: true,
		StageStateFailed:    true,
	},
	StageStateSending: {
		StageStateCompleted: true,
		StageStateCancelled: true,
		StageStateFailed:    true,
	},
	StageStateCompleted: {
		StageStateIdle: true,
	},
	StageStateCancelled: {
		StageStateIdle: true,
	},
	StageStateFailed: {
		StageStateIdle: true,
	},
}

// stageStateOrder is the order states are drawn in diagrams.
var stageStateOrder = []StageState{
	StageStateIdle,
	StageStateFetching,
	StageStateGenerating,
	StageStateSending,
	StageStateCompleted,
	StageStateCancelled,
	StageStateFailed,
}

// Outcome is how a finished Run ended.
type Outcome int

const (
	OutcomeUnknown   Outcome = 0
	OutcomeCompleted Outcome = 1
	OutcomeNoRecords Outcome = 2
	OutcomeCancelled Outcome = 3
	OutcomeFailed    Outcome = 4
)

func (o Outcome) String() string {
	switch o {
	case OutcomeUnknown:
		return "Unknown"
	case OutcomeCompleted:
		return "Completed"
	case OutcomeNoRecords:
		return "NoRecords"
	case OutcomeCancelled:
		return "Cancelled"
	case OutcomeFailed:
		return "Failed"
	default:
		return fmt.Sprintf("Outcome(%d)", o)
	}
}

// finalState maps an outcome onto the state the stage passes through before Idle.
func (o Outcome) finalState() StageState {
	switch o {
	case OutcomeCancelled:
		return StageStateCancelled
	case OutcomeFailed:
		return StageStateFailed
	default:
		return StageStateCompleted
	}
}
