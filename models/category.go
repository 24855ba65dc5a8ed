package models

// Category represents a product category.
// The name is unique and doubles as the category's identity in the admin UI.
type Category struct {
	ID       uint      `gorm:"primaryKey"`
	Name     string    `gorm:"uniqueIndex;size:50;not null"`
	Products []Product `gorm:"foreignKey:CategoryID"`
}

func (c *Category) TableName() string {
	return "categories"
}
