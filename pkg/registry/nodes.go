package registry

import (
	"github.com/dukex/flowcore/pkg/expression"
	"github.com/dukex/flowcore/pkg/nodes/boundary"
	"github.com/dukex/flowcore/pkg/nodes/catch"
	"github.com/dukex/flowcore/pkg/nodes/end"
	"github.com/dukex/flowcore/pkg/nodes/exclusive"
	"github.com/dukex/flowcore/pkg/nodes/httprequest"
	"github.com/dukex/flowcore/pkg/nodes/inclusive"
	"github.com/dukex/flowcore/pkg/nodes/log"
	"github.com/dukex/flowcore/pkg/nodes/parallel"
	"github.com/dukex/flowcore/pkg/nodes/servicetask"
	"github.com/dukex/flowcore/pkg/nodes/start"
	"github.com/dukex/flowcore/pkg/nodes/task"
	"github.com/dukex/flowcore/pkg/nodes/usertask"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
func (r *Registry) RegisterDefaultNodes(evaluator *expression.Evaluator) {
	// Events
	r.RegisterNode(start.NewStartEventFactory())
	r.RegisterNode(end.NewEndEventFactory())
	r.RegisterNode(catch.NewMessageCatchEventFactory())
	r.RegisterNode(catch.NewTimerCatchEventFactory())
	r.RegisterNode(boundary.NewBoundaryEventFactory())

	// Tasks
	r.RegisterNode(task.NewScriptTaskFactory(evaluator))
	r.RegisterNode(servicetask.NewServiceTaskFactory())
	r.RegisterNode(usertask.NewUserTaskFactory())
	r.RegisterNode(httprequest.NewHTTPTaskFactory())
	r.RegisterNode(log.NewLogTaskFactory())

	// Gateways
	r.RegisterNode(exclusive.NewExclusiveGatewayFactory())
	r.RegisterNode(inclusive.NewInclusiveGatewayFactory())
	r.RegisterNode(parallel.NewParallelGatewayFactory())
}
