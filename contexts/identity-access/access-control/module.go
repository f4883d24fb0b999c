package accesscontrol

import (
	"log/slog"
	"time"

	httpadapter "gatekeeper/contexts/identity-access/access-control/adapters/http"
	"gatekeeper/contexts/identity-access/access-control/adapters/memory"
	"gatekeeper/contexts/identity-access/access-control/application/commands"
	"gatekeeper/contexts/identity-access/access-control/application/queries"
	"gatekeeper/contexts/identity-access/access-control/ports"
)

// Module is the access-control composition root exposed to runtime wiring.
type Module struct {
	Handler httpadapter.Handler
	Store   *memory.Store
}

// Dependencies captures all runtime ports/config required by NewModule.
type Dependencies struct {
	Repository       ports.PolicyRepository
	Enforcement      ports.EnforcementSwitch
	DecisionCache    ports.DecisionCache
	Clock            ports.Clock
	IDGenerator      ports.IDGenerator
	DecisionCacheTTL time.Duration
	Logger           *slog.Logger
}

// NewModule wires use-cases and the transport handler using explicit ports.
func NewModule(deps Dependencies) Module {
	checkAccess := queries.CheckAccessUseCase{
		Repository:       deps.Repository,
		Enforcement:      deps.Enforcement,
		DecisionCache:    deps.DecisionCache,
		Clock:            deps.Clock,
		DecisionCacheTTL: deps.DecisionCacheTTL,
		Logger:           deps.Logger,
	}
	checkBatch := queries.CheckAccessBatchUseCase{
		CheckAccess: checkAccess,
		Logger:      deps.Logger,
	}
	isExempt := queries.IsExemptUseCase{
		Repository: deps.Repository,
		Logger:     deps.Logger,
	}
	getPolicy := queries.GetPolicyUseCase{
		Repository: deps.Repository,
		Logger:     deps.Logger,
	}
	auditPolicy := queries.AuditPolicyUseCase{
		Repository: deps.Repository,
		Logger:     deps.Logger,
	}
	addPermission := commands.AddPermissionUseCase{
		Repository:    deps.Repository,
		DecisionCache: deps.DecisionCache,
		Clock:         deps.Clock,
		IDGenerator:   deps.IDGenerator,
		Logger:        deps.Logger,
	}
	addGroup := commands.AddGroupUseCase{
		Repository:    deps.Repository,
		DecisionCache: deps.DecisionCache,
		Clock:         deps.Clock,
		IDGenerator:   deps.IDGenerator,
		Logger:        deps.Logger,
	}
	addException := commands.AddExceptionUseCase{
		Repository:    deps.Repository,
		DecisionCache: deps.DecisionCache,
		Clock:         deps.Clock,
		IDGenerator:   deps.IDGenerator,
		Logger:        deps.Logger,
	}
	setEnforcement := commands.SetEnforcementUseCase{
		Enforcement:   deps.Enforcement,
		DecisionCache: deps.DecisionCache,
		Logger:        deps.Logger,
	}

	handler := httpadapter.Handler{
		CheckAccess:    checkAccess,
		CheckBatch:     checkBatch,
		IsExempt:       isExempt,
		GetPolicy:      getPolicy,
		AuditPolicy:    auditPolicy,
		AddPermission:  addPermission,
		AddGroup:       addGroup,
		AddException:   addException,
		SetEnforcement: setEnforcement,
		Logger:         deps.Logger,
	}

	return Module{
		Handler: handler,
	}
}

// NewInMemoryModule builds a development/testing module with in-memory
// adapters seeded with the default configuration.
func NewInMemoryModule(logger *slog.Logger) Module {
	store := memory.NewStore()
	module := NewModule(Dependencies{
		Repository:       store,
		Enforcement:      store,
		DecisionCache:    store,
		Clock:            store,
		IDGenerator:      store,
		DecisionCacheTTL: 5 * time.Minute,
		Logger:           logger,
	})
	module.Store = store
	return module
}
