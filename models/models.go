package models

import (
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// --- JWT & Auth ---

type JwtClaims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// --- Catalog ---

// Product is the slice of an inventory item the intelligence engine needs.
type Product struct {
	ID         string `json:"id"`
	MerchantID string `json:"merchant_id"`
	Name       string `json:"name"`
}

// SnapshotRecord is a persisted copy of an analysis result.
type SnapshotRecord struct {
	ID         string    `json:"id"`
	MerchantID string    `json:"merchant_id"`
	ProductID  string    `json:"product_id"`
	CreatedAt  time.Time `json:"created_at"`
}
