package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Client is a customer that invoices are issued to.
type Client struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Email     string       `gorm:"type:text;not null;index" json:"email"`
	Phone     *string      `gorm:"type:text" json:"phone,omitempty"`
	Address   *string      `gorm:"type:text" json:"address,omitempty"`
	CreatedAt time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null" json:"updated_at"`
}

func (Client) TableName() string { return "clients" }
