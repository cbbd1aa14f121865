package models

import "time"

// DeviceType is the vendor device category.
type DeviceType string

const (
	DeviceTypeIntercom DeviceType = "intercom"
	DeviceTypeBarrier  DeviceType = "barrier"
)

// DeviceTypes lists the categories refreshed from the vendor, in fetch order.
var DeviceTypes = []DeviceType{DeviceTypeIntercom, DeviceTypeBarrier}

// Valid reports whether t is a known category.
func (t DeviceType) Valid() bool {
	return t == DeviceTypeIntercom || t == DeviceTypeBarrier
}

// Device is an intercom or barrier. CameraID references Camera.ID and is nil
// when the device has no camera or the camera is linked to another device.
type Device struct {
	ID          string
	VendorID    string
	Type        DeviceType
	LoginID     string
	CameraID    *string
	Description string
	IsFavorite  bool
	NameByUser  *string
	UpdatedAt   time.Time
}

// DisplayName prefers the user's name over the vendor description.
func (d *Device) DisplayName() string {
	if d.NameByUser != nil && *d.NameByUser != "" {
		return *d.NameByUser
	}
	return d.Description
}
