package database

import (
	"timekeeper/workflow"

	"gorm.io/gorm"
)

// UpdateStatus applies updates to the row of model with the given id only
// while its status is still from. Two approvers racing on the same record
// therefore produce one winner; the other gets workflow.ErrStateConflict.
// updates must include the new "status".
func UpdateStatus(tx *gorm.DB, model interface{}, id uint, from workflow.Status, updates map[string]interface{}) error {
	res := tx.Model(model).Where("id = ? AND status = ?", id, from).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return workflow.ErrStateConflict
	}
	return nil
}
