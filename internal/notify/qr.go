package notify

import (
	"bytes"
	"fmt"

	"github.com/yeqown/go-qrcode"
)

// RenderQR encodes token as a JPEG QR image.
func RenderQR(token string) ([]byte, error) {
	if token == "" {
		return nil, fmt.Errorf("empty qr token")
	}
	qrc, err := qrcode.New(token)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	var buf bytes.Buffer
	if err := qrc.SaveTo(&buf); err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return buf.Bytes(), nil
}
