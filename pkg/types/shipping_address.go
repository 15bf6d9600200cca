package types

import "strings"

// ShippingAddress is the delivery address captured on an order.
type ShippingAddress struct {
	FullName        string `json:"fullName" gorm:"column:full_name" validate:"required,max=120"`
	MobileNumber    string `json:"mobileNumber" gorm:"column:mobile_number" validate:"required,phone"`
	Country         string `json:"country" gorm:"column:country" validate:"required,max=80"`
	AddressSpecific string `json:"addressSpecific" gorm:"column:address_specific" validate:"required,max=255"`
	City            string `json:"city" gorm:"column:city" validate:"required,max=80"`
	State           string `json:"state" gorm:"column:state" validate:"required,max=80"`
	ZipCode         string `json:"zipCode" gorm:"column:zip_code" validate:"required,max=20"`
}

// MissingFields lists the json names of blank required fields.
func (a ShippingAddress) MissingFields() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"fullName", a.FullName},
		{"mobileNumber", a.MobileNumber},
		{"country", a.Country},
		{"addressSpecific", a.AddressSpecific},
		{"city", a.City},
		{"state", a.State},
		{"zipCode", a.ZipCode},
	}
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}

// Trimmed returns a copy with surrounding whitespace removed.
func (a ShippingAddress) Trimmed() ShippingAddress {
	return ShippingAddress{
		FullName:        strings.TrimSpace(a.FullName),
		MobileNumber:    strings.TrimSpace(a.MobileNumber),
		Country:         strings.TrimSpace(a.Country),
		AddressSpecific: strings.TrimSpace(a.AddressSpecific),
		City:            strings.TrimSpace(a.City),
		State:           strings.TrimSpace(a.State),
		ZipCode:         strings.TrimSpace(a.ZipCode),
	}
}
