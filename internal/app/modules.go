package app

import (
	"github.com/vk/accelgrid/internal/registry"
	"github.com/vk/accelgrid/modules/mathfn"
	"github.com/vk/accelgrid/modules/reduce"
	"github.com/vk/accelgrid/modules/solvers"
)

// coreModules are the host builtin modules compiled into the binary.
var coreModules = []registry.Module{
	&mathfn.Module{},
	&reduce.Module{},
	&solvers.Module{},
}
