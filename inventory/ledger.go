package inventory

import (
	"fmt"
	"sort"

	"github.com/Govind-619/storefront/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InsufficientStockError reports the first line that could not be reserved.
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Requested   int
	Available   int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s: requested %d, available %d", e.ProductName, e.Requested, e.Available)
}

// Line is a quantity of one product to take out of stock.
type Line struct {
	ProductID uint
	Quantity  int
}

// TryReserve decrements stock by qty in a single conditional statement.
// Nothing is written unless at least qty units are on hand.
func TryReserve(tx *gorm.DB, productID uint, qty int) error {
	if qty <= 0 {
		return fmt.Errorf("reserve quantity must be positive, got %d", qty)
	}
	res := tx.Model(&models.Product{}).
		Where("id = ? AND stock >= ?", productID, qty).
		Update("stock", gorm.Expr("stock - ?", qty))
	if res.Error != nil {
		return fmt.Errorf("failed to reserve stock for product %d: %w", productID, res.Error)
	}
	if res.RowsAffected == 1 {
		return nil
	}

	var product models.Product
	if err := tx.Session(&gorm.Session{NewDB: true}).Select("id", "name", "stock").First(&product, productID).Error; err != nil {
		return fmt.Errorf("failed to load product %d: %w", productID, err)
	}
	return &InsufficientStockError{
		ProductID:   product.ID,
		ProductName: product.Name,
		Requested:   qty,
		Available:   product.Stock,
	}
}

// Merge folds duplicate product lines together and orders the result by
// ascending product id, which is the lock order for product rows.
func Merge(lines []Line) []Line {
	totals := make(map[uint]int, len(lines))
	for _, l := range lines {
		totals[l.ProductID] += l.Quantity
	}
	merged := make([]Line, 0, len(totals))
	for id, qty := range totals {
		merged = append(merged, Line{ProductID: id, Quantity: qty})
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ProductID < merged[j].ProductID })
	return merged
}

// Settle takes every line out of stock or none of them. It must run inside
// the caller's transaction; any error is meant to abort it.
func Settle(tx *gorm.DB, lines []Line) error {
	merged := Merge(lines)
	if len(merged) == 0 {
		return nil
	}

	ids := make([]uint, len(merged))
	for i, l := range merged {
		ids[i] = l.ProductID
	}

	var products []models.Product
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&products).Error; err != nil {
		return fmt.Errorf("failed to lock products: %w", err)
	}

	byID := make(map[uint]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	// Check everything first so the error names the first short line
	// without any partial decrement having been issued.
	for _, l := range merged {
		p, ok := byID[l.ProductID]
		if !ok {
			return fmt.Errorf("product %d: %w", l.ProductID, gorm.ErrRecordNotFound)
		}
		if p.Stock < l.Quantity {
			return &InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   l.Quantity,
				Available:   p.Stock,
			}
		}
	}

	for _, l := range merged {
		if err := TryReserve(tx, l.ProductID, l.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// Restock puts every line back on the shelf, in the same product order
// Settle locks them.
func Restock(tx *gorm.DB, lines []Line) error {
	for _, l := range Merge(lines) {
		if l.Quantity <= 0 {
			continue
		}
		res := tx.Model(&models.Product{}).
			Where("id = ?", l.ProductID).
			Update("stock", gorm.Expr("stock + ?", l.Quantity))
		if res.Error != nil {
			return fmt.Errorf("failed to restock product %d: %w", l.ProductID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("product %d: %w", l.ProductID, gorm.ErrRecordNotFound)
		}
	}
	return nil
}
