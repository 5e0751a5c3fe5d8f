package collections

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		countryCode string
		want        string
		wantOK      bool
	}{
		{"national mobile", "(11) 98765-4321", "55", "5511987654321", true},
		{"national landline", "1133334444", "55", "551133334444", true},
		{"international", "+55 11 98765-4321", "55", "5511987654321", true},
		{"trunk prefix", "0 11 99999-8888", "55", "5511999998888", true},
		{"foreign number keeps its code", "+1 201 555 0123", "55", "12015550123", true},
		{"other default region", "(201) 555-0123", "1", "12015550123", true},
		{"missing area code", "98765-4321", "55", "", false},
		{"too long", "+1 (555) 0100-2000-3000-4", "55", "", false},
		{"empty", "", "55", "", false},
		{"not a number", "n/a", "55", "", false},
		{"unknown default region", "11987654321", "999", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NormalizePhone(tt.raw, tt.countryCode)
			assert.Equal(t, tt.wantOK, ok, tt.raw)
			assert.Equal(t, tt.want, got, tt.raw)
		})
	}
}

func TestRegionForCountryCode(t *testing.T) {
	assert.Equal(t, "BR", RegionForCountryCode("55"))
	assert.Equal(t, "BR", RegionForCountryCode("+55"))
	assert.Equal(t, "US", RegionForCountryCode("1"))
	assert.Equal(t, "ZZ", RegionForCountryCode("abc"))
}
