package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

func GenerateID() string {
	return uuid.NewString()
}

// GeneratePaymentRef returns PAY_<unix ms>_<random>.
func GeneratePaymentRef() string {
	return fmt.Sprintf("PAY_%d_%s", time.Now().UnixMilli(), randomToken(9))
}

func GenerateChatID() string {
	return "chat_" + randomToken(20)
}

func GenerateMessageID() string {
	return "msg_" + randomToken(20)
}

const tokenAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

func randomToken(n int) string {
	var sb strings.Builder
	sb.Grow(n)
	max := big.NewInt(int64(len(tokenAlphabet)))
	for i := 0; i < n; i++ {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing is unrecoverable for ids; fall back to uuid entropy
			return strings.ReplaceAll(uuid.NewString(), "-", "")[:n]
		}
		sb.WriteByte(tokenAlphabet[idx.Int64()])
	}
	return sb.String()
}
