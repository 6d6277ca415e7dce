package models

import (
	"fmt"

	"bitbucket.org/mmdatafocus/stripboard_backend/utils"
	"gorm.io/gorm"
)

// AcquireBoardLock serializes writes per stripboard across instances using MySQL advisory locks.
// NOTE: GET_LOCK is connection-scoped, so this must be called on the same *gorm.DB that will do the write transaction.
func AcquireBoardLock(tx *gorm.DB, projectId string, stripboardId int) error {
	lockName := fmt.Sprintf("stripboard:%s:%d", projectId, stripboardId)
	var ok int
	if err := tx.Raw("SELECT GET_LOCK(?, 30)", lockName).Scan(&ok).Error; err != nil {
		return err
	}
	if ok != 1 {
		// lock wait timed out: another writer holds the board
		return utils.NewConflictError(fmt.Sprintf("could not acquire board lock for stripboard_id=%d", stripboardId))
	}
	return nil
}

func ReleaseBoardLock(tx *gorm.DB, projectId string, stripboardId int) {
	lockName := fmt.Sprintf("stripboard:%s:%d", projectId, stripboardId)
	var _ok int
	_ = tx.Raw("SELECT RELEASE_LOCK(?)", lockName).Scan(&_ok).Error
}
