package model

import "github.com/google/uuid"

// Unit is a transport unit. Owned by the fleet catalog, read-only here.
type Unit struct {
	ID       uuid.UUID `gorm:"primaryKey" json:"id"`
	Number   string    `gorm:"size:100" json:"number"`
	Category string    `gorm:"size:100" json:"category"`
	Plates   string    `gorm:"size:100" json:"plates"`
}

func (Unit) TableName() string {
	return "units"
}

type Operator struct {
	ID        uuid.UUID `gorm:"primaryKey" json:"id"`
	FirstName string    `gorm:"size:100" json:"first_name"`
	LastName  string    `gorm:"size:100" json:"last_name"`
}

func (Operator) TableName() string {
	return "operators"
}

func (o Operator) FullName() string {
	if o.LastName == "" {
		return o.FirstName
	}
	return o.FirstName + " " + o.LastName
}
