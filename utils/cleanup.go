package utils

import (
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/habitloop/checkin-api/models"
)

// StartUploadCleaner periodically removes expired proof photos, both
// the file on disk and the tracking row. Runs until the process exits.
func StartUploadCleaner(db *gorm.DB, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for range ticker.C {
			sweepExpiredUploads(db)
		}
	}()
}

func sweepExpiredUploads(db *gorm.DB) {
	var files []models.UploadedFile
	now := time.Now()
	if err := db.Where("expire_at <= ?", now).Find(&files).Error; err != nil {
		Sugar.Errorf("upload cleaner query failed: %v", err)
		return
	}
	for _, f := range files {
		if f.FilePath != "" {
			if err := os.Remove(f.FilePath); err != nil && !os.IsNotExist(err) {
				Sugar.Warnf("upload cleaner: remove %s failed: %v", f.FilePath, err)
				continue
			}
		}
		if err := db.Delete(&models.UploadedFile{}, f.ID).Error; err != nil {
			Sugar.Errorf("upload cleaner: delete row %d failed: %v", f.ID, err)
			continue
		}
		Sugar.Infof("upload cleaner: removed expired upload %s", f.FilePath)
	}
}
