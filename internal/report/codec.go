package report

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/skip2/go-qrcode"
)

var ErrInvalidCode = errors.New("invalid verification code")

// Claim is the sealed content of a verification code.
type Claim struct {
	ReportID  string    `json:"reportId"`
	BookingID string    `json:"bookingId"`
	TotalCost float64   `json:"totalCost"`
	IssuedAt  time.Time `json:"issuedAt"`
}

// Codec seals report claims with AES-GCM and renders them as QR codes.
type Codec struct {
	aead cipher.AEAD
}

func NewCodec(secret string) (*Codec, error) {
	key := sha256.Sum256([]byte(secret))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	return &Codec{aead: aead}, nil
}

func (c *Codec) Seal(claim Claim) (string, error) {
	data, err := json.Marshal(claim)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}
	sealed := c.aead.Seal(nonce, nonce, data, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

func (c *Codec) Open(code string) (*Claim, error) {
	raw, err := base64.RawURLEncoding.DecodeString(code)
	if err != nil || len(raw) < c.aead.NonceSize() {
		return nil, ErrInvalidCode
	}
	nonce, sealed := raw[:c.aead.NonceSize()], raw[c.aead.NonceSize():]
	data, err := c.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrInvalidCode
	}
	var claim Claim
	if err := json.Unmarshal(data, &claim); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCode, err)
	}
	return &claim, nil
}

// QR renders content as a PNG QR code.
func QR(content string) ([]byte, error) {
	return qrcode.Encode(content, qrcode.Medium, 256)
}
