// Package migration creates the portal schema on startup so local and
// self-hosted deployments work out of the box.
package migration

import (
	auditdomain "github.com/traversoft/customer-portal/internal/audit/domain"
	customerdomain "github.com/traversoft/customer-portal/internal/customer/domain"
	sessiondomain "github.com/traversoft/customer-portal/internal/session/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB) error {
		return conn.AutoMigrate(
			&customerdomain.Customer{},
			&sessiondomain.SessionRecord{},
			&auditdomain.AuditEvent{},
		)
	}),
)
