package model

type QRStatus string

const (
	QRStatusSuccess     QRStatus = "success"
	QRStatusError       QRStatus = "error"
	QRStatusAlreadyUsed QRStatus = "already_used"
)

// QRCodeData describes a promotional discount code.
type QRCodeData struct {
	Code     string `json:"code"`
	Discount int    `json:"discount"`
	Active   bool   `json:"active"`
}

// QRVerification is the booking API's verdict on a scanned code.
type QRVerification struct {
	Status  QRStatus    `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    *QRCodeData `json:"data,omitempty"`
}

// Discount is the verified code attached to a checkout.
type Discount struct {
	Code    string `json:"code"`
	Percent int    `json:"discount"`
}
