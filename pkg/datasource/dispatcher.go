package datasource

import (
	"errors"

	"github.com/peter-kozarec/pairs/pkg/bus"
	"github.com/peter-kozarec/pairs/pkg/common"
)

// ErrEof marks the end of a finite observation source.
var ErrEof = errors.New("EOF")

type ObservationSource interface {
	GetNext() (common.Observation, error)
}

// CreateObservationDispatcher adapts a pull source to Router.ExecLoop.
func CreateObservationDispatcher(r *bus.Router, ds ObservationSource) func() error {
	return func() error {
		obs, err := ds.GetNext()
		if err != nil {
			return err
		}
		return r.Post(bus.ObservationEvent, obs)
	}
}
