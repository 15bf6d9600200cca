package models

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the single thread between a customer and a vendor.
type Conversation struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID     uuid.UUID  `gorm:"column:customer_id;type:uuid;not null"`
	VendorID       uuid.UUID  `gorm:"column:vendor_id;type:uuid;not null"`
	ProductID      *uuid.UUID `gorm:"column:product_id;type:uuid"`
	LastMessage    *string    `gorm:"column:last_message"`
	LastMessageAt  *time.Time `gorm:"column:last_message_at"`
	UnreadCustomer int        `gorm:"column:unread_customer;not null;default:0"`
	UnreadVendor   int        `gorm:"column:unread_vendor;not null;default:0"`
	MessageCount   int64      `gorm:"column:message_count;not null;default:0"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

func (Conversation) TableName() string { return "conversations" }
