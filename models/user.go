package models

// User is a registered customer or admin. Authentication lives behind an
// external gateway; the record exists so orders can reference the buyer.
type User struct {
	ID           uint    `gorm:"primaryKey"`
	Username     string  `gorm:"uniqueIndex;size:80;not null"`
	Email        string  `gorm:"uniqueIndex;size:120;not null"`
	PasswordHash string  `gorm:"size:256;not null"`
	IsAdmin      bool    `gorm:"not null;default:false"`
	Orders       []Order `gorm:"foreignKey:UserID"`
}

func (u *User) TableName() string {
	return "users"
}
