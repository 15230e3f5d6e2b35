package models

import (
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Fruit is a votable fruit. Name is the natural key: it is unique, set once,
// and is what two fruits are compared by.
type Fruit struct {
	ID uint `gorm:"primaryKey"`

	// Name is the natural identifier of the fruit (e.g., "Manga").
	Name string `gorm:"uniqueIndex;not null;size:255"`

	// VoteCount is the number of votes received. Nil until the fruit is stored.
	VoteCount *int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the table name for GORM
func (Fruit) TableName() string {
	return "fruits"
}

// Equal reports whether f and o share the same natural key.
func (f Fruit) Equal(o Fruit) bool {
	return f.Name == o.Name
}

// fruitDeleteColumns lists the columns DeleteFruitsBy accepts.
var fruitDeleteColumns = map[string]string{
	"id":   "id",
	"name": "name",
}

// Create inserts a new fruit.
func (f *Fruit) Create(db *gorm.DB) error {
	if err := validation.ValidateStruct(f,
		validation.Field(&f.Name, validation.Required, validation.Length(1, 255)),
	); err != nil {
		return fmt.Errorf("validation error: %w", err)
	}

	return db.
		Omit(clause.Associations).
		Create(f).
		Error
}

// Get retrieves a fruit by ID.
func (f *Fruit) Get(db *gorm.DB, id uint) error {
	if err := validation.Validate(id, validation.Required); err != nil {
		return err
	}

	return db.First(f, id).Error
}

// GetByName retrieves a fruit by name.
func (f *Fruit) GetByName(db *gorm.DB, name string) error {
	if err := validation.Validate(name, validation.Required); err != nil {
		return err
	}

	return db.
		Where("name = ?", name).
		First(f).
		Error
}

// ListFruits returns every fruit in the order the database returns them.
func ListFruits(db *gorm.DB) ([]Fruit, error) {
	var fruits []Fruit
	if err := db.Find(&fruits).Error; err != nil {
		return nil, err
	}
	return fruits, nil
}

// TopVotedFruits returns up to limit fruits by descending vote count. Ties are
// broken by ID.
func TopVotedFruits(db *gorm.DB, limit int) ([]Fruit, error) {
	if err := validation.Validate(limit, validation.Required, validation.Min(1)); err != nil {
		return nil, fmt.Errorf("invalid limit: %w", err)
	}

	var fruits []Fruit
	if err := db.
		Where("vote_count IS NOT NULL").
		Order("vote_count DESC").
		Order("id ASC").
		Limit(limit).
		Find(&fruits).
		Error; err != nil {
		return nil, err
	}
	return fruits, nil
}

// DeleteFruitsBy deletes the fruits whose field equals value and returns the
// number of rows removed. Only "id" and "name" are accepted as fields.
func DeleteFruitsBy(db *gorm.DB, field string, value any) (int64, error) {
	col, ok := fruitDeleteColumns[field]
	if !ok {
		return 0, fmt.Errorf("unsupported field %q", field)
	}

	res := db.
		Where(clause.Eq{Column: clause.Column{Name: col}, Value: value}).
		Delete(&Fruit{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// IsNotFound reports whether err means the requested row does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
