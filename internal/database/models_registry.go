package database

import "purpaws/internal/models"

// PersistentModels returns the authoritative set of schema-managed GORM models,
// in dependency order.
func PersistentModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Profile{},
		&models.PetReport{},
		&models.PetForAdoption{},
		&models.Notification{},
	}
}
