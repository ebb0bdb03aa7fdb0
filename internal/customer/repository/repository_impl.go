package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/traversoft/customer-portal/internal/customer/domain"
	"github.com/traversoft/customer-portal/pkg/db"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, gdb *gorm.DB, customer *domain.Customer) error {
	if err := gdb.WithContext(ctx).Create(customer).Error; err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *repo) FindByID(ctx context.Context, gdb *gorm.DB, id snowflake.ID) (*domain.Customer, error) {
	var customer domain.Customer
	err := gdb.WithContext(ctx).First(&customer, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repo) FindByEmail(ctx context.Context, gdb *gorm.DB, email string) (*domain.Customer, error) {
	var customer domain.Customer
	err := gdb.WithContext(ctx).First(&customer, "email = ?", domain.NormalizeEmail(email)).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCustomerNotFound
		}
		return nil, err
	}
	return &customer, nil
}

func (r *repo) List(ctx context.Context, gdb *gorm.DB, filter domain.ListCustomerFilter) ([]*domain.Customer, error) {
	var customers []*domain.Customer
	stmt := gdb.WithContext(ctx).Model(&domain.Customer{})
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		stmt = stmt.Where(
			"lower(first_name) LIKE lower(?) OR lower(last_name) LIKE lower(?) OR lower(email) LIKE lower(?)",
			pattern, pattern, pattern,
		)
	}
	if filter.ActiveOnly {
		stmt = stmt.Where("is_active = ?", true)
	}
	if err := stmt.Order("last_name asc, first_name asc, id asc").Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *repo) UpdateFields(ctx context.Context, gdb *gorm.DB, id snowflake.ID, fields map[string]any) error {
	res := gdb.WithContext(ctx).
		Model(&domain.Customer{}).
		Where("id = ?", id).
		Updates(fields)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return domain.ErrEmailTaken
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrCustomerNotFound
	}
	return nil
}
