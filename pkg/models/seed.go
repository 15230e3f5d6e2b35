package models

import (
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedFruits is the initial catalogue. It matches the seed migration.
var SeedFruits = []Fruit{
	{ID: 1, Name: "Maçã", VoteCount: intPtr(5)},
	{ID: 2, Name: "Banana", VoteCount: intPtr(8)},
	{ID: 3, Name: "Manga", VoteCount: intPtr(30)},
	{ID: 4, Name: "Uva", VoteCount: intPtr(15)},
	{ID: 5, Name: "Laranja", VoteCount: intPtr(3)},
	{ID: 6, Name: "Morango", VoteCount: intPtr(22)},
	{ID: 7, Name: "Abacaxi", VoteCount: intPtr(10)},
}

// Seed inserts SeedFruits, skipping fruits whose name already exists.
func Seed(db *gorm.DB) error {
	for _, f := range SeedFruits {
		f := f
		if err := db.
			Clauses(clause.OnConflict{DoNothing: true}).
			Create(&f).
			Error; err != nil {
			return fmt.Errorf("error seeding fruit %q: %w", f.Name, err)
		}
	}
	return nil
}

func intPtr(v int) *int {
	return &v
}
