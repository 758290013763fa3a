package services

import (
	"bytes"
	"encoding/base64"
	"image/png"

	"github.com/skip2/go-qrcode"
)

const qrImageSize = 256

// RenderAddressQR encodes a deposit address (and memo, when the chain needs
// one) as a base64 PNG for wallet apps to scan.
func RenderAddressQR(address, memo string) (string, error) {
	content := address
	if memo != "" {
		content += "?memo=" + memo
	}

	qr, err := qrcode.New(content, qrcode.Medium)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, qr.Image(qrImageSize)); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
