package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"cargo_miniapp/internal/client"
	"cargo_miniapp/internal/conversation"
	"cargo_miniapp/internal/domain"
	"cargo_miniapp/pkg/logger"
)

var (
	serverURL string
	logLevel  string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "miniapp-cli",
		Short:        "Терминальный клиент личного кабинета заказов",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "адрес API сервера")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "уровень логирования")

	rootCmd.AddCommand(loginCmd())
	rootCmd.AddCommand(ordersCmd())
	rootCmd.AddCommand(chatCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type savedSession struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken"`
	Phone        string `json:"phone"`
}

func sessionPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.TempDir()
	}
	return filepath.Join(home, ".miniapp-cli.json")
}

func saveSession(s *savedSession) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(sessionPath(), data, 0600)
}

func loadSession() (*savedSession, error) {
	data, err := os.ReadFile(sessionPath())
	if err != nil {
		return nil, err
	}
	s := &savedSession{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

func newClient() *client.Client {
	return client.New(serverURL, logger.New(logLevel))
}

// authedClient возвращает клиент с токеном из сохраненной сессии.
func authedClient() (*client.Client, error) {
	s, err := loadSession()
	if err != nil {
		return nil, errors.New("не авторизован: выполните `miniapp-cli login`")
	}

	cli := newClient()
	cli.SetToken(s.Token)
	return cli, nil
}

func loginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login <phone>",
		Short: "Вход по номеру телефона с кодом подтверждения",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			phone := args[0]
			cli := newClient()

			otp, err := cli.RequestOTP(ctx, phone)
			if err != nil {
				return fmt.Errorf("не удалось запросить код: %w", err)
			}

			if otp.Code != "" {
				// development-режим сервера: код приходит в ответе
				fmt.Printf("Код подтверждения: %s\n", otp.Code)
			} else {
				fmt.Println("Код отправлен. Проверьте Telegram.")
			}

			fmt.Print("Введите код: ")
			var code string
			if _, err := fmt.Fscanln(cmd.InOrStdin(), &code); err != nil {
				return err
			}

			result, err := cli.VerifyOTP(ctx, phone, code)
			if err != nil {
				return fmt.Errorf("вход не выполнен: %w", err)
			}

			if err := saveSession(&savedSession{
				Token:        result.Token,
				RefreshToken: result.RefreshToken,
				Phone:        phone,
			}); err != nil {
				return fmt.Errorf("не удалось сохранить сессию: %w", err)
			}

			if result.IsNewUser {
				fmt.Println("Аккаунт создан. Добро пожаловать!")
			} else {
				fmt.Printf("Здравствуйте, %s!\n", result.User.FullName)
			}
			return nil
		},
	}
}

func ordersCmd() *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "orders",
		Short: "Список заказов",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := authedClient()
			if err != nil {
				return err
			}

			orders, total, err := cli.ListOrders(cmd.Context(), status, 0, 0)
			if err != nil {
				return err
			}

			if len(orders) == 0 {
				fmt.Println("Заказов нет.")
				return nil
			}

			for _, o := range orders {
				chatMark := " "
				if o.HasChat {
					chatMark = "✉"
				}
				fmt.Printf("%s №%-6d %-30s %-12s %10.2f  %s\n",
					chatMark, o.OrderNumber, o.Name, o.Status, o.Price, o.ID)
			}
			fmt.Printf("Всего: %d\n", total)
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "фильтр по статусу (PENDING, IN_PROCESS, IN_BORDER, DONE)")
	return cmd
}

func chatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <order-id>",
		Short: "Переписка по заказу",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			orderID, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("некорректный идентификатор заказа: %w", err)
			}

			cli, err := authedClient()
			if err != nil {
				return err
			}

			return runChat(cmd.Context(), cli, orderID)
		},
	}
}

// runChat держит интерактивную переписку: движок пересчитывает ленту,
// терминал ее печатает и отправляет введенные строки.
func runChat(ctx context.Context, cli *client.Client, orderID uuid.UUID) error {
	log := logger.New(logLevel)

	socket := client.NewSocket(wsURL(serverURL), cli.Token, log)
	socket.Connect()
	defer socket.Close()

	hooks := conversation.Hooks{
		OnUpdate: func(messages []*domain.Message) {
			printThread(messages)
		},
		OnSendFailed: func(text string, err error) {
			fmt.Printf("! Сообщение не отправлено: %v (черновик восстановлен)\n", err)
		},
		OnChatRequired: func(orderNumber int64) {
			fmt.Printf("Чат по заказу №%d еще не открыт. Введите /start чтобы начать.\n", orderNumber)
		},
		OnError: func(err error) {
			fmt.Printf("! Ошибка: %v\n", err)
		},
	}

	session, err := conversation.New(orderID, conversation.Deps{
		Orders:  cli,
		History: cli,
		Sender:  cli,
		Feed:    socket,
		Log:     log,
	}, hooks)
	if err != nil {
		return err
	}
	defer session.Teardown()

	if err := session.Initialize(ctx); err != nil {
		return fmt.Errorf("не удалось открыть переписку: %w", err)
	}

	fmt.Printf("Заказ №%d. Введите сообщение, /start для открытия чата, /quit для выхода.\n", session.OrderNumber())

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		HistoryFile:     filepath.Join(os.TempDir(), ".miniapp_chat_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		input := strings.TrimSpace(line)
		switch {
		case input == "":
			continue
		case input == "/quit":
			return nil
		case input == "/start":
			if session.HasChat() {
				fmt.Println("Чат уже открыт.")
				continue
			}
			if _, err := cli.CreateChat(ctx, orderID); err != nil {
				fmt.Printf("! Не удалось открыть чат: %v\n", err)
				continue
			}
			session.OnChatCreated()
			fmt.Println("Чат открыт.")
		default:
			if !session.HasChat() {
				fmt.Println("Сначала откройте чат командой /start.")
				continue
			}
			if err := session.Submit(ctx, input); err != nil {
				switch {
				case errors.Is(err, conversation.ErrSendInFlight):
					fmt.Println("! Дождитесь отправки предыдущего сообщения.")
				case errors.Is(err, conversation.ErrMessageTooLong):
					fmt.Printf("! Сообщение длиннее %d символов.\n", domain.MaxMessageLength)
				default:
					fmt.Printf("! %v\n", err)
				}
			}
		}
	}
}

func printThread(messages []*domain.Message) {
	fmt.Println(strings.Repeat("-", 60))
	for _, m := range messages {
		sender := "Вы"
		if m.SenderRole == domain.SenderRoleSeller {
			sender = "Продавец"
			if m.Seller != nil && m.Seller.FullName != "" {
				sender = m.Seller.FullName
			}
		}
		fmt.Printf("[%s] %s: %s\n", m.CreatedAt.Local().Format(time.Kitchen), sender, m.Text)
	}
	fmt.Println(strings.Repeat("-", 60))
}

// wsURL переводит базовый адрес API в адрес push-канала.
func wsURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://") + "/ws"
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://") + "/ws"
	default:
		return "ws://" + base + "/ws"
	}
}
