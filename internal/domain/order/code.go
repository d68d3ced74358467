package order

import (
	"math/rand/v2"
	"time"
)

const (
	codeAlphabet   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeRandLength = 6
	codeTimeLayout = "060102150405"
)

// GenerateCode builds a human readable order code such as "K3Z9QA-251019143005":
// six random characters followed by the UTC placement time.
func GenerateCode(at time.Time) string {
	b := make([]byte, codeRandLength, codeRandLength+1+len(codeTimeLayout))
	for i := range codeRandLength {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	b = append(b, '-')
	b = at.UTC().AppendFormat(b, codeTimeLayout)
	return string(b)
}
