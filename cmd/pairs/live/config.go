package main

import (
	"time"

	"github.com/peter-kozarec/pairs/pkg/middleware"
)

const (
	RouterEventCapacity = 4096
	ReconnectBackoff    = 5 * time.Second
	ShutdownTimeout     = 5 * time.Second
	MonitorFlags        = middleware.MonitorSelections | middleware.MonitorDirectives | middleware.MonitorFills
)
