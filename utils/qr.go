package utils

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

const qrSize = 300

// RenderQR encodes content as a PNG QR code and returns it as a data URI.
func RenderQR(content string) (string, error) {
	png, err := qrcode.Encode(content, qrcode.Medium, qrSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
