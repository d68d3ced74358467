package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGenerateCode(t *testing.T) {
	at := time.Date(2025, 1, 2, 3, 4, 5, 0, time.FixedZone("CET", 3600))

	code := GenerateCode(at)

	assert.Regexp(t, `^[A-Z0-9]{6}-250102020405$`, code)
}

func TestGenerateCode_Varies(t *testing.T) {
	at := time.Now()
	seen := make(map[string]bool)
	for range 50 {
		seen[GenerateCode(at)] = true
	}
	assert.Greater(t, len(seen), 45)
}
