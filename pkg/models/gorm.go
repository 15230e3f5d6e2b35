package models

// ModelsToAutoMigrate lists the models gorm migrates in development mode.
func ModelsToAutoMigrate() []interface{} {
	return []interface{}{
		&Fruit{},
	}
}
