package middleware

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/gin-gonic/gin"

	"cargo_miniapp/pkg/logger"
)

// TelegramUser - данные пользователя из поля user в initData.
type TelegramUser struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
}

type TelegramMiddleware struct {
	botToken string
	log      logger.Logger
}

func NewTelegramMiddleware(botToken string, log logger.Logger) *TelegramMiddleware {
	return &TelegramMiddleware{
		botToken: botToken,
		log:      log,
	}
}

// RequireInitData проверяет заголовок X-Telegram-Auth с initData из
// Mini-App и кладет распарсенного пользователя Telegram в контекст.
func (m *TelegramMiddleware) RequireInitData() gin.HandlerFunc {
	return func(c *gin.Context) {
		initData := c.GetHeader("X-Telegram-Auth")
		if initData == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-Telegram-Auth header required"})
			c.Abort()
			return
		}

		tgUser, err := ValidateInitData(initData, m.botToken)
		if err != nil {
			m.log.Warn("Invalid telegram initData", "error", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid telegram auth data"})
			c.Abort()
			return
		}

		c.Set("telegram_user", tgUser)
		c.Next()
	}
}

// TelegramUserFrom достает пользователя Telegram, положенного RequireInitData.
func TelegramUserFrom(c *gin.Context) (*TelegramUser, bool) {
	v, ok := c.Get("telegram_user")
	if !ok {
		return nil, false
	}
	user, ok := v.(*TelegramUser)
	return user, ok
}

// ValidateInitData проверяет подпись initData по схеме Telegram Web Apps:
// HMAC-SHA256 от data-check-string с ключом HMAC("WebAppData", botToken).
func ValidateInitData(initData, botToken string) (*TelegramUser, error) {
	q, err := url.ParseQuery(initData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse initData: %w", err)
	}

	hash := q.Get("hash")
	if hash == "" {
		return nil, fmt.Errorf("hash is not present in initData")
	}

	userJSON := q.Get("user")
	if userJSON == "" {
		return nil, fmt.Errorf("user data is not present in initData")
	}

	tgUser := &TelegramUser{}
	if err := json.Unmarshal([]byte(userJSON), tgUser); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user data: %w", err)
	}

	var pairs []string
	for k, v := range q {
		if k != "hash" && len(v) > 0 {
			pairs = append(pairs, fmt.Sprintf("%s=%s", k, v[0]))
		}
	}
	sort.Strings(pairs)
	dataCheckString := strings.Join(pairs, "\n")

	secretKey := hmac.New(sha256.New, []byte("WebAppData"))
	secretKey.Write([]byte(botToken))

	h := hmac.New(sha256.New, secretKey.Sum(nil))
	h.Write([]byte(dataCheckString))
	calculatedHash := hex.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(calculatedHash), []byte(hash)) {
		return nil, fmt.Errorf("initData signature mismatch")
	}

	return tgUser, nil
}
