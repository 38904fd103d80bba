// Package qr builds the deep links and QR image URLs shared in chat
// when an event is announced.
package qr

import (
	"fmt"
	"net/url"
)

const imageEndpoint = "https://api.qrserver.com/v1/create-qr-code/"

// JoinLink is the deep link a QR scan resolves to.
func JoinLink(eventID string) string {
	return fmt.Sprintf("solmeet://join/%s", eventID)
}

// ImageURL points at a rendered QR code for the given payload. Size is
// pixels per side; non-positive falls back to 200.
func ImageURL(data string, size int) string {
	if size <= 0 {
		size = 200
	}
	return fmt.Sprintf("%s?size=%dx%d&data=%s", imageEndpoint, size, size, url.QueryEscape(data))
}
