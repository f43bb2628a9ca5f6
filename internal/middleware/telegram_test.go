package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBotToken = "123456:test-bot-token"

// signInitData подписывает query-параметры по схеме Telegram Web Apps.
func signInitData(params map[string]string, botToken string) string {
	var pairs []string
	for k, v := range params {
		pairs = append(pairs, fmt.Sprintf("%s=%s", k, v))
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	secretKey := hmac.New(sha256.New, []byte("WebAppData"))
	secretKey.Write([]byte(botToken))

	h := hmac.New(sha256.New, secretKey.Sum(nil))
	h.Write([]byte(dataCheckString))
	hash := hex.EncodeToString(h.Sum(nil))

	q := url.Values{}
	for k, v := range params {
		q.Set(k, v)
	}
	q.Set("hash", hash)
	return q.Encode()
}

func TestValidateInitData_AcceptsSignedData(t *testing.T) {
	initData := signInitData(map[string]string{
		"auth_date": "1700000000",
		"user":      `{"id":42,"first_name":"Ivan","username":"ivan"}`,
	}, testBotToken)

	tgUser, err := ValidateInitData(initData, testBotToken)
	require.NoError(t, err)
	assert.Equal(t, int64(42), tgUser.ID)
	assert.Equal(t, "Ivan", tgUser.FirstName)
	assert.Equal(t, "ivan", tgUser.Username)
}

func TestValidateInitData_RejectsTamperedData(t *testing.T) {
	initData := signInitData(map[string]string{
		"auth_date": "1700000000",
		"user":      `{"id":42,"first_name":"Ivan"}`,
	}, testBotToken)

	// Подменяем пользователя после подписания
	tampered := strings.Replace(initData, "42", "43", 1)

	_, err := ValidateInitData(tampered, testBotToken)
	assert.Error(t, err)
}

func TestValidateInitData_RejectsWrongBotToken(t *testing.T) {
	initData := signInitData(map[string]string{
		"auth_date": "1700000000",
		"user":      `{"id":42}`,
	}, "other:token")

	_, err := ValidateInitData(initData, testBotToken)
	assert.Error(t, err)
}

func TestValidateInitData_RejectsMissingHash(t *testing.T) {
	_, err := ValidateInitData("user=%7B%22id%22%3A42%7D", testBotToken)
	assert.Error(t, err)
}

func TestValidateInitData_RejectsMissingUser(t *testing.T) {
	initData := signInitData(map[string]string{
		"auth_date": "1700000000",
	}, testBotToken)

	_, err := ValidateInitData(initData, testBotToken)
	assert.Error(t, err)
}
