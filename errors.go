package sqlloader

import (
	"fmt"
)

// Stage is a step of a replace load.
type Stage string

// Stages of LoadReplace in execution order.
const (
	StageConnect Stage = "connect"
	StageCheck   Stage = "check existence"
	StageDrop    Stage = "drop table"
	StageCreate  Stage = "create table"
	StageInsert  Stage = "insert rows"
	StageCommit  Stage = "commit"
)

// StageError reports the stage at which a load failed.
type StageError struct {
	Stage Stage
	Table string

	// Statement is the SQL that failed, if any.
	Statement string

	Err error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("failed to load %s at %s: %v", e.Table, e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
