//////////////////////////////////////////////////////////////////////////////
//
// Element object model: types, classes, factories and the base source
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

/*
Package element is the object model that pipelines are built from.

Classes are registered at runtime with RegisterType, which takes a TypeInfo
table of hooks. A class can additionally declare capabilities with
AddInterface. Plugins advertise classes under a factory name and rank, and
factories create BaseSrc instances that are driven through the state machine
and pulled from on a streaming goroutine.
*/
package element

import (
	"github.com/lanikai/alohasrc/internal/logging"
)

var log = logging.DefaultLogger.WithTag("element")
