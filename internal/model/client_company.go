package model

import (
	"time"

	"github.com/google/uuid"
)

// ClientCompany is a company whose R&D claims the workspace prepares.
// Rows are never hard deleted; IsActive=false hides them from default listings.
type ClientCompany struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	UUID          uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();uniqueIndex;not null" json:"uuid"`
	Name          string    `gorm:"type:varchar(255);not null;index" json:"name"`
	CompanyNumber string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"companyNumber"`
	UTR           string    `gorm:"column:utr;type:varchar(20)" json:"utr"`
	PAYEReference string    `gorm:"column:paye_reference;type:varchar(30)" json:"payeReference"`
	ContactName   string    `gorm:"type:varchar(255)" json:"contactName"`
	ContactEmail  string    `gorm:"type:varchar(255)" json:"contactEmail"`
	ContactPhone  string    `gorm:"type:varchar(50)" json:"contactPhone"`
	Address       string    `gorm:"type:text" json:"address"`
	YearEndMonth  *int      `gorm:"type:smallint" json:"yearEndMonth"`
	YearEndDay    *int      `gorm:"type:smallint" json:"yearEndDay"`
	IsActive      bool      `gorm:"not null;default:true;index" json:"isActive"`

	CreatedByID   *uint      `json:"-"`
	CreatedByUUID *uuid.UUID `gorm:"type:uuid" json:"createdByUuid"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// HasYearEnd reports whether both year-end fields are set
func (c *ClientCompany) HasYearEnd() bool {
	return c.YearEndMonth != nil && c.YearEndDay != nil
}
