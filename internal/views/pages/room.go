package pages

import "drawingliar/internal/views/components"

// RoomData is the full room page
type RoomData struct {
	View      components.RoomView
	Signals   map[string]any
	InviteURL string
	QRCode    string // base64 PNG, optional
}

func qrSource(png string) string {
	return "data:image/png;base64," + png
}
