package main

import (
	"time"

	"github.com/peter-kozarec/pairs/pkg/middleware"
)

const (
	RouterEventCapacity = 1024
	SnapshotInterval    = 24 * time.Hour
	SyntheticStartPrice = 100
	MonitorFlags        = middleware.MonitorSelections | middleware.MonitorFills
)
