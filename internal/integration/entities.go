package integration

import (
	"github.com/tpcgrp/p6ebs-sync/internal/config"
	"github.com/tpcgrp/p6ebs-sync/internal/mapping"
	"github.com/tpcgrp/p6ebs-sync/internal/models"
	"github.com/tpcgrp/p6ebs-sync/internal/source"
	"github.com/tpcgrp/p6ebs-sync/internal/validation"
)

// entityTypes binds each integration type to the entity types it reconciles
var entityTypes = map[string][]string{
	config.ProjectFinancials:  {mapping.EntityProject},
	config.ProjectWBS:         {mapping.EntityWBS},
	config.ResourceManagement: {mapping.EntityResource},
	config.Timesheet:          {mapping.EntityActivity},
	config.EBSTasksToP6:       {mapping.EntityTask},
	config.Procurement:        {mapping.EntityProject},
}

// EntityTypes returns the entity types reconciled by an integration type
func EntityTypes(integrationType string) []string {
	return append([]string(nil), entityTypes[integrationType]...)
}

// RegisterChecks installs the pre-flight checks of every known integration
// type: both systems reachable (blocking), a mapping for each entity type and
// a name on every record (warnings).
func RegisterChecks(gate *validation.Gate, registry *mapping.Registry, p6, ebs source.EntitySource) {
	for _, integrationType := range config.KnownIntegrationTypes {
		gate.Known(integrationType)
		gate.Register(integrationType, "p6-connectivity", validation.ConnectivityCheck(integrationType, models.SystemP6, p6))
		gate.Register(integrationType, "ebs-connectivity", validation.ConnectivityCheck(integrationType, models.SystemEBS, ebs))

		for _, entityType := range entityTypes[integrationType] {
			gate.Register(integrationType, entityType+"-mapping", validation.MappingCheck(registry, entityType))

			b, ok := registry.Snapshot().Binding(entityType)
			if !ok {
				continue
			}
			gate.Register(integrationType, entityType+"-p6-name",
				validation.RequiredFieldCheck(p6, models.SystemP6, entityType, b.IDFieldP6, b.NameFieldP6))
			gate.Register(integrationType, entityType+"-ebs-name",
				validation.RequiredFieldCheck(ebs, models.SystemEBS, entityType, b.IDFieldEBS, b.NameFieldEBS))
			if entityType == mapping.EntityActivity || entityType == mapping.EntityTask {
				gate.Register(integrationType, entityType+"-p6-duration",
					validation.NonNegativeCheck(p6, models.SystemP6, entityType, b.IDFieldP6, "duration"))
			}
		}
	}
}
