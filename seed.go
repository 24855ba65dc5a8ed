package main

import (
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/donjersey/shop-api/models"
)

// seedData loads a small sample catalog for local development. Existing rows
// are cleared first, children before parents, to avoid FK violations.
func seedData(db *gorm.DB) error {
	return db.Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.OrderItem{}, &models.Order{},
			&models.ProductVariant{}, &models.Product{},
			&models.Category{}, &models.User{},
		} {
			if err := tx.Where("1 = 1").Delete(model).Error; err != nil {
				return err
			}
		}

		admin := models.User{
			Username:     "admin",
			Email:        "admin@donjersey.shop",
			PasswordHash: "!disabled",
			IsAdmin:      true,
		}
		if err := tx.Create(&admin).Error; err != nil {
			return err
		}

		jerseys := models.Category{Name: "Jerseys"}
		sneakers := models.Category{Name: "Sneakers"}
		if err := tx.Create(&jerseys).Error; err != nil {
			return err
		}
		if err := tx.Create(&sneakers).Error; err != nil {
			return err
		}

		products := []models.Product{
			{
				Name:        "Jersey",
				Description: "Official home jersey, current season.",
				Price:       decimal.NewFromInt(1500),
				CategoryID:  jerseys.ID,
				ImageURL:    "https://images.donjersey.shop/jersey-home.jpg",
				SizeType:    models.SizeTypeStandard,
				Variants: []models.ProductVariant{
					{Size: "M", Edition: "Fan", Stock: 8},
					{Size: "L", Edition: "Fan", Stock: 5},
					{Size: "L", Edition: "Player", Stock: 2},
				},
			},
			{
				Name:        "Retro Jersey",
				Description: "Limited reissue of the 1998 away kit.",
				Price:       decimal.NewFromInt(2200),
				CategoryID:  jerseys.ID,
				ImageURL:    "https://images.donjersey.shop/jersey-retro.jpg",
				SizeType:    models.SizeTypeStandard,
				Variants: []models.ProductVariant{
					{Size: "S", Edition: "Fan", Stock: 0},
					{Size: "M", Edition: "Fan", Stock: 3},
				},
			},
			{
				Name:        "Court Sneaker",
				Description: "Low-top trainer with gum sole.",
				Price:       decimal.NewFromInt(3500),
				CategoryID:  sneakers.ID,
				ImageURL:    "https://images.donjersey.shop/sneaker-court.jpg",
				SizeType:    models.SizeTypeNumber,
				Variants: []models.ProductVariant{
					{Size: "40", Edition: "Standard", Stock: 4},
					{Size: "41", Edition: "Standard", Stock: 6},
					{Size: "42", Edition: "Standard", Stock: 0},
				},
			},
		}
		for i := range products {
			if err := tx.Create(&products[i]).Error; err != nil {
				return err
			}
		}

		return nil
	})
}
