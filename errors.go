// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.27
//

package goppp

import (
	"errors"
	"fmt"
)

var (
	ErrSynchronization = errors.New("observations not synchronized")
	ErrInsufficientObs = errors.New("not enough observations")
	ErrGeometry        = errors.New("initial position not solvable")
	ErrModel           = errors.New("observation model failed")
	ErrEstimation      = errors.New("estimation failed")
	ErrInternal        = errors.New("internal error")
)

// Processing step of an epoch
type Step int

const (
	StepNone Step = iota
	StepPrepare
	StepInitialPosition
	StepModel
	StepFilter
)

func (s Step) String() string {
	switch s {
	case StepPrepare:
		return "prepare"
	case StepInitialPosition:
		return "bancroft"
	case StepModel:
		return "model"
	case StepFilter:
		return "filter"
	}
	return "none"
}

// Failure of one epoch at a processing step
type EpochError struct {
	Step Step
	Err  error
}

func (e *EpochError) Error() string {
	return fmt.Sprintf("epoch failed at step %d (%s), err=%s", int(e.Step), e.Step, e.Err)
}

func (e *EpochError) Unwrap() error {
	return e.Err
}
