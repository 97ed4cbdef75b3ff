package bot

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"telegram_rewards/internal/domain"
	"telegram_rewards/internal/logger"
	"telegram_rewards/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Ответы бота
const (
	ReplyWelcome       = "Welcome to the Telegram Mini App!"
	ReplyRegistered    = "You have been registered!"
	ReplyWelcomeBack   = "Welcome back!"
	ReplyError         = "Something went wrong!"
	ReplyNeedsUsername = "Please set a Telegram username to register."
)

const handleTimeout = 10 * time.Second

// Registrar регистрация пользователя из чата
type Registrar interface {
	RegisterChatUser(ctx context.Context, username string, tgID int64) (*domain.User, bool, error)
}

// Sender отправка сообщений, в проде *tgbotapi.BotAPI
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot слушает сообщения и регистрирует отправителей
type Bot struct {
	api       *tgbotapi.BotAPI
	sender    Sender
	registrar Registrar
	stopCh    chan struct{}
	wg        sync.WaitGroup
	log       *slog.Logger
}

// New авторизуется в Telegram по токену
func New(token string, registrar Registrar) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	b := newBot(api, registrar)
	b.api = api
	b.log.Info("bot authorized", "username", api.Self.UserName)
	return b, nil
}

func newBot(sender Sender, registrar Registrar) *Bot {
	return &Bot{
		sender:    sender,
		registrar: registrar,
		stopCh:    make(chan struct{}),
		log:       logger.With("component", "bot"),
	}
}

// Start блокирует до Stop или закрытия канала обновлений
func (b *Bot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")
	b.run(updates)
}

func (b *Bot) run(updates tgbotapi.UpdatesChannel) {
	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleMessage(msg)
			}(update.Message)
		}
	}
}

// Stop ждет обработчики не дольше 10 секунд
func (b *Bot) Stop() {
	b.log.Info("stopping bot...")
	close(b.stopCh)
	if b.api != nil {
		b.api.StopReceivingUpdates()
	}

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	text := b.reply(ctx, msg)
	if text == "" {
		return
	}
	if _, err := b.sender.Send(tgbotapi.NewMessage(msg.Chat.ID, text)); err != nil {
		b.log.Error("send failed", "chat_id", msg.Chat.ID, "error", err)
	}
}

// reply выбирает ответ на сообщение. Пустая строка - не отвечать
func (b *Bot) reply(ctx context.Context, msg *tgbotapi.Message) string {
	if msg.Chat == nil {
		return ""
	}
	if msg.IsCommand() && msg.Command() == "start" {
		return ReplyWelcome
	}
	if msg.From == nil {
		return ""
	}

	_, created, err := b.registrar.RegisterChatUser(ctx, msg.From.UserName, msg.From.ID)
	switch {
	case errors.Is(err, service.ErrUsernameRequired):
		return ReplyNeedsUsername
	case err != nil:
		b.log.Error("chat registration failed", "chat_id", msg.Chat.ID, "username", msg.From.UserName, "error", err)
		return ReplyError
	case created:
		b.log.Info("user registered", "chat_id", msg.Chat.ID, "username", msg.From.UserName)
		return ReplyRegistered
	default:
		return ReplyWelcomeBack
	}
}
