package vendorapi

import "time"

// vendorTimeLayout is the wire format the vendor expects for window parameters
const vendorTimeLayout = "2006-01-02 15:04:05"

// FormatVendorTime renders a UTC instant in the vendor's fixed zone.
// Storage stays UTC; the offset only exists at this boundary.
func FormatVendorTime(t time.Time, offsetHours int) string {
	zone := time.FixedZone("vendor", offsetHours*3600)
	return t.In(zone).Format(vendorTimeLayout)
}

// ParseVendorTime reads a vendor-zone timestamp back into UTC
func ParseVendorTime(s string, offsetHours int) (time.Time, error) {
	zone := time.FixedZone("vendor", offsetHours*3600)
	t, err := time.ParseInLocation(vendorTimeLayout, s, zone)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FormatDisplayTime renders a UTC instant in the configured display zone
func FormatDisplayTime(t time.Time, offsetHours int) string {
	zone := time.FixedZone("display", offsetHours*3600)
	return t.In(zone).Format(vendorTimeLayout)
}
