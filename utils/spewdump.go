package utils

import (
	"github.com/davecgh/go-spew/spew"
	log "github.com/sirupsen/logrus"
)

var spewConfig *spew.ConfigState
var spewShallowConfig *spew.ConfigState

func init() {
	spewConfig = spew.NewDefaultConfig()
	spewConfig.DisableCapacities = true

	spewShallowConfig = spew.NewDefaultConfig()
	spewShallowConfig.DisableCapacities = true
	spewShallowConfig.DisablePointerAddresses = true
	spewShallowConfig.MaxDepth = 2
}

func SDump(a ...interface{}) string {
	return spewConfig.Sdump(a...)
}

// SDumpShallow stops two levels down, for documents holding large buffers.
func SDumpShallow(a ...interface{}) string {
	return spewShallowConfig.Sdump(a...)
}

func LogDump(a ...interface{}) {
	log.Debugln(SDump(a...))
}
