// internal/collections/phone.go
package collections

import (
	"strconv"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// NormalizePhone parses a guardian phone as written in the school records and
// returns it as E.164 digits without the plus sign. Numbers without an
// international prefix are read as national numbers of countryCode's region,
// so trunk prefixes are dropped and foreign numbers keep their own code. It
// reports false when the number is not a valid, dialable number.
func NormalizePhone(raw, countryCode string) (string, bool) {
	num, err := phonenumbers.Parse(raw, RegionForCountryCode(countryCode))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return "", false
	}
	return strings.TrimPrefix(phonenumbers.Format(num, phonenumbers.E164), "+"), true
}

// RegionForCountryCode maps a calling code such as "55" to its main region
// ("BR"). Unknown codes map to "ZZ".
func RegionForCountryCode(countryCode string) string {
	cc, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(countryCode), "+"))
	if err != nil {
		return phonenumbers.UNKNOWN_REGION
	}
	return phonenumbers.GetRegionCodeForCountryCode(cc)
}
