package models

import "github.com/google/uuid"

// SellerModel is the read-only slice of the storefront sellers table used
// for payout notices.
type SellerModel struct {
	BaseModel
	Email        string `gorm:"type:varchar(255)"`
	BusinessName string `gorm:"type:varchar(255)"`
	ContactName  string `gorm:"type:varchar(255)"`
}

// TableName returns the table name for GORM
func (SellerModel) TableName() string {
	return "sellers"
}

// DisplayName prefers the business name
func (m *SellerModel) DisplayName() string {
	if m.BusinessName != "" {
		return m.BusinessName
	}
	return m.ContactName
}

// NewSellerModel is used by fixtures
func NewSellerModel(id uuid.UUID, email, businessName string) *SellerModel {
	return &SellerModel{BaseModel: BaseModel{ID: id}, Email: email, BusinessName: businessName}
}
