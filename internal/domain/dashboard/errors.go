package dashboard

import (
	"errors"
	"fmt"
)

// Stage names a primary step of a crop page load.
type Stage string

const (
	StageCrop       Stage = "crop"
	StageLogs       Stage = "logs"
	StagePrediction Stage = "prediction"
)

// LoadError reports the stage at which a crop page load failed. The page
// returned alongside it holds everything loaded before that stage.
type LoadError struct {
	Stage Stage
	Err   error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.Stage, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// ErrPartialSync is returned when a batch sync committed only some logs.
var ErrPartialSync = errors.New("log sync incomplete")
