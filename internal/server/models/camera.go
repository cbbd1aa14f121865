package models

import "time"

type Camera struct {
	ID                    string
	VendorID              string
	LoginID               string
	ArchiveLength         *int
	ScreenshotURLTemplate string
	ScreenshotToken       string
	StreamerToken         string
	UpdatedAt             time.Time
}
