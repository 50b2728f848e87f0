// Package models contains all data models for the mahoot feed generator
package models

import (
	"gorm.io/gorm"
)

// AllModels returns a slice of all model types for database migrations
func AllModels() []interface{} {
	return []interface{}{
		&UserPreferences{},
		&Followee{},
		&Post{},
		&PostView{},
		&DailyStat{},
	}
}

// AutoMigrate runs automatic migrations for all models
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(AllModels()...)
}
