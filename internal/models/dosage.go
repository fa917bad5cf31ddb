package models

import "github.com/shopspring/decimal"

// Dosage is one cup size offered on the kiosk menu.
type Dosage struct {
	ID     uint            `gorm:"primarykey" json:"id"`
	Name   string          `gorm:"size:255;not null" json:"name" validate:"required,max=255"`
	ML     int             `gorm:"column:ml;not null" json:"ml" validate:"gt=0"`
	Price  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price" validate:"gte=0"`
	TimeS  int             `gorm:"column:time_s;not null" json:"time_s" validate:"gt=0"`
	Active bool            `gorm:"not null" json:"active"`
}

// KioskDosage is the public menu projection served to the kiosk.
type KioskDosage struct {
	ID    uint    `json:"id"`
	Name  string  `json:"name"`
	ML    int     `json:"ml"`
	Price float64 `json:"price"`
	TimeS int     `json:"time_s"`
}

// ToKiosk projects a catalog dosage onto the kiosk menu shape.
func (d Dosage) ToKiosk() KioskDosage {
	return KioskDosage{
		ID:    d.ID,
		Name:  d.Name,
		ML:    d.ML,
		Price: d.Price.Round(2).InexactFloat64(),
		TimeS: d.TimeS,
	}
}

// ClientData is the payload of GET /client-data.
type ClientData struct {
	Dosages   []KioskDosage `json:"dosages"`
	BannerURL string        `json:"bannerUrl"`
}
