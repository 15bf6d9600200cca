package types

import (
	"reflect"
	"testing"
)

func TestShippingAddressMissingFields(t *testing.T) {
	addr := ShippingAddress{
		FullName:        "Ada Lovelace",
		MobileNumber:    "  ",
		Country:         "UK",
		AddressSpecific: "12 St James's Square",
		City:            "London",
		ZipCode:         "SW1Y",
	}

	got := addr.MissingFields()
	want := []string{"mobileNumber", "state"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("MissingFields() = %v, want %v", got, want)
	}
}

func TestShippingAddressTrimmed(t *testing.T) {
	addr := ShippingAddress{FullName: "  Ada ", City: "London\n"}
	trimmed := addr.Trimmed()
	if trimmed.FullName != "Ada" || trimmed.City != "London" {
		t.Fatalf("unexpected trimmed address %+v", trimmed)
	}
}
