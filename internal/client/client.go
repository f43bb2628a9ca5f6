package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"cargo_miniapp/internal/domain"
	apperrors "cargo_miniapp/pkg/errors"
	"cargo_miniapp/pkg/logger"
)

// Client - REST-клиент API. Реализует коллабораторов движка переписки:
// conversation.OrderReader, conversation.HistoryFetcher и
// conversation.MessageSender.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        logger.Logger

	mu           sync.RWMutex
	token        string
	refreshToken string
}

func New(baseURL string, log logger.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
}

// SetToken устанавливает access-токен, полученный вне клиента
// (например, из сохраненной сессии).
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
}

// Token возвращает текущий access-токен (для push-подключения).
func (c *Client) Token() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) setTokens(token, refreshToken string) {
	c.mu.Lock()
	c.token = token
	c.refreshToken = refreshToken
	c.mu.Unlock()
}

type apiError struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			return c.mapError(resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}

	return nil
}

// mapError восстанавливает доменные ошибки из статуса ответа, чтобы
// вызывающий код мог ветвиться через errors.Is.
func (c *Client) mapError(status int, message string) error {
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", apperrors.ErrUnauthorized, message)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", apperrors.ErrNotFound, message)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", apperrors.ErrChatAlreadyExists, message)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", apperrors.ErrTooManyAttempts, message)
	default:
		return fmt.Errorf("%w: %s", apperrors.ErrBadRequest, message)
	}
}

type otpAuthRequest struct {
	Phone string `json:"phone"`
	Code  string `json:"code,omitempty"`
}

type OTPResult struct {
	Message   string `json:"message"`
	Code      string `json:"code"`
	IsNewUser bool   `json:"isNewUser"`
}

type LoginResult struct {
	Message      string       `json:"message"`
	IsNewUser    bool         `json:"isNewUser"`
	User         *domain.User `json:"user"`
	Token        string       `json:"token"`
	RefreshToken string       `json:"refreshToken"`
}

// RequestOTP запрашивает код подтверждения на телефон.
func (c *Client) RequestOTP(ctx context.Context, phone string) (*OTPResult, error) {
	var result OTPResult
	err := c.do(ctx, http.MethodPost, "/api/auth/user-otp-auth", otpAuthRequest{Phone: phone}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// VerifyOTP завершает вход и запоминает выданные токены.
func (c *Client) VerifyOTP(ctx context.Context, phone, code string) (*LoginResult, error) {
	var result LoginResult
	err := c.do(ctx, http.MethodPost, "/api/auth/user-otp-auth", otpAuthRequest{Phone: phone, Code: code}, &result)
	if err != nil {
		return nil, err
	}

	c.setTokens(result.Token, result.RefreshToken)
	return &result, nil
}

type ordersPage struct {
	Orders     []*domain.Order `json:"orders"`
	TotalCount int             `json:"totalCount"`
}

func (c *Client) ListOrders(ctx context.Context, status string, limit, offset int) ([]*domain.Order, int, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}

	path := "/api/user/orders"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var page ordersPage
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, 0, err
	}

	return page.Orders, page.TotalCount, nil
}

// GetOrder реализует conversation.OrderReader.
func (c *Client) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	var order domain.Order
	if err := c.do(ctx, http.MethodGet, "/api/user/orders/"+orderID.String(), nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

type messagesPage struct {
	Messages   []*domain.Message `json:"messages"`
	TotalCount int               `json:"totalCount"`
}

// FetchMessages реализует conversation.HistoryFetcher.
func (c *Client) FetchMessages(ctx context.Context, orderID uuid.UUID, limit, offset int) ([]*domain.Message, int, error) {
	q := url.Values{}
	q.Set("orderId", orderID.String())
	q.Set("limit", strconv.Itoa(limit))
	q.Set("offset", strconv.Itoa(offset))

	var page messagesPage
	if err := c.do(ctx, http.MethodGet, "/api/user/messages?"+q.Encode(), nil, &page); err != nil {
		return nil, 0, err
	}

	return page.Messages, page.TotalCount, nil
}

type sendMessageRequest struct {
	OrderID string  `json:"orderId"`
	Text    string  `json:"text"`
	Image   *string `json:"image,omitempty"`
}

type sendMessageResponse struct {
	Message string          `json:"message"`
	Data    *domain.Message `json:"data"`
}

// CreateMessage реализует conversation.MessageSender.
func (c *Client) CreateMessage(ctx context.Context, orderID uuid.UUID, text string, image *string) (*domain.Message, error) {
	var resp sendMessageResponse
	req := sendMessageRequest{OrderID: orderID.String(), Text: text, Image: image}
	if err := c.do(ctx, http.MethodPost, "/api/user/messages", req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

type createChatRequest struct {
	OrderID string `json:"orderId"`
}

type createChatResponse struct {
	Message string    `json:"message"`
	ChatID  uuid.UUID `json:"chatId"`
}

// CreateChat открывает чат по заказу и возвращает его идентификатор.
func (c *Client) CreateChat(ctx context.Context, orderID uuid.UUID) (uuid.UUID, error) {
	var resp createChatResponse
	req := createChatRequest{OrderID: orderID.String()}
	if err := c.do(ctx, http.MethodPost, "/api/user/chats", req, &resp); err != nil {
		return uuid.Nil, err
	}
	return resp.ChatID, nil
}

func (c *Client) GetUserInfo(ctx context.Context) (*domain.User, error) {
	var user domain.User
	if err := c.do(ctx, http.MethodGet, "/api/auth/get-user-information", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
