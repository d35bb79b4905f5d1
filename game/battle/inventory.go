package battle

import (
	"context"
	"errors"

	"github.com/minako-h/duelgate/server/model"
	"gorm.io/gorm"
)

// DBItemBag backs the resolver's item consumption with the inventory table.
type DBItemBag struct {
	db *gorm.DB
}

func NewDBItemBag(db *gorm.DB) *DBItemBag {
	return &DBItemBag{db: db}
}

func (b *DBItemBag) Count(ctx context.Context, charID, itemID int64) (int, error) {
	var inv model.Inventory
	err := b.db.WithContext(ctx).
		Where("char_id = ? AND item_id = ? AND equipped = ?", charID, itemID, false).
		First(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return inv.Qty, nil
}

// Consume removes one unit, deleting the row when the stack empties.
func (b *DBItemBag) Consume(ctx context.Context, charID, itemID int64) error {
	var inv model.Inventory
	err := b.db.WithContext(ctx).
		Where("char_id = ? AND item_id = ? AND equipped = ?", charID, itemID, false).
		First(&inv).Error
	if err != nil {
		return err
	}
	if inv.Qty <= 1 {
		return b.db.WithContext(ctx).Delete(&model.Inventory{}, inv.ID).Error
	}
	return b.db.WithContext(ctx).Model(&model.Inventory{}).
		Where("id = ?", inv.ID).
		UpdateColumn("qty", gorm.Expr("qty - 1")).Error
}
