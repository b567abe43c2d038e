package qr

import (
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// Link builds the deep link that opens the bot and starts a survey.
func Link(botUsername string, questionnaireID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=survey_%d", botUsername, questionnaireID)
}

// PNG encodes the survey deep link as a QR code image.
func PNG(botUsername string, questionnaireID int64) ([]byte, error) {
	return qrcode.Encode(Link(botUsername, questionnaireID), qrcode.Medium, 256)
}
