package repository

import (
	"context"

	"marketplace/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository reads the collaborator tables (users, orders, products) the
// affiliate engine depends on but does not own.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// GetUserByID retrieves a user by ID
func (r *Repository) GetUserByID(ctx context.Context, userID uint) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// LockUser loads a user with a row lock held until tx ends. SQLite ignores
// the locking clause.
func LockUser(tx *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", userID).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetOrderWithItems retrieves an order together with its line items and products
func (r *Repository) GetOrderWithItems(ctx context.Context, orderID uint) (*models.Order, error) {
	return GetOrderWithItems(r.db.WithContext(ctx), orderID)
}

// GetOrderWithItems is the transaction-friendly form of Repository.GetOrderWithItems
func GetOrderWithItems(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		Where("id = ?", orderID).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}
