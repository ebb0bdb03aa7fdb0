package erp

import (
	"context"
	"fmt"
	"net/url"

	"github.com/traversoft/customer-portal/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type sqlServerInventory struct {
	db  *gorm.DB
	log *zap.Logger
}

// Provide opens the read-only ERP connection. An unconfigured ERP yields a
// stub so the rest of the portal runs without it.
func Provide(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (Inventory, error) {
	if !cfg.ERP.Configured() {
		log.Warn("erp not configured, inventory disabled")
		return disabled{}, nil
	}

	dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
		url.QueryEscape(cfg.ERP.User),
		url.QueryEscape(cfg.ERP.Password),
		cfg.ERP.Host,
		cfg.ERP.Port,
		url.QueryEscape(cfg.ERP.Name),
	)
	db, err := gorm.Open(sqlserver.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open erp database: %w", err)
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return &sqlServerInventory{db: db, log: log.Named("erp.inventory")}, nil
}

func (s *sqlServerInventory) CustomerInventory(ctx context.Context, accountNames []string, unrestricted bool) ([]InventoryItem, error) {
	var items []InventoryItem
	stmt := s.db.WithContext(ctx).Raw(
		`SELECT customer_name, item_code, description, quantity,
		        unit_of_measure, location, received_at
		 FROM portal_inventory_view
		 ORDER BY customer_name, item_code`,
	)
	if !unrestricted {
		if len(accountNames) == 0 {
			return nil, nil
		}
		stmt = s.db.WithContext(ctx).Raw(
			`SELECT customer_name, item_code, description, quantity,
			        unit_of_measure, location, received_at
			 FROM portal_inventory_view
			 WHERE customer_name IN ?
			 ORDER BY customer_name, item_code`,
			accountNames,
		)
	}
	if err := stmt.Scan(&items).Error; err != nil {
		return nil, fmt.Errorf("erp inventory query: %w", err)
	}
	return items, nil
}

func (s *sqlServerInventory) CustomerNames(ctx context.Context) ([]string, error) {
	var names []string
	err := s.db.WithContext(ctx).Raw(
		`SELECT DISTINCT customer_name FROM portal_inventory_view ORDER BY customer_name`,
	).Scan(&names).Error
	if err != nil {
		return nil, fmt.Errorf("erp customer names query: %w", err)
	}
	return names, nil
}

type disabled struct{}

func (disabled) CustomerInventory(context.Context, []string, bool) ([]InventoryItem, error) {
	return nil, ErrNotConfigured
}

func (disabled) CustomerNames(context.Context) ([]string, error) {
	return nil, ErrNotConfigured
}
