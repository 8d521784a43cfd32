package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"memory_promo/internal/domain"
	"memory_promo/internal/logger"
	"memory_promo/internal/repository"
	"memory_promo/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// часть BotAPI, которой пользуется бот
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// AdminBot отвечает на команды администраторов и уведомляет их о новых победителях
type AdminBot struct {
	bot          botAPI
	adminService *service.AdminService
	adminIDs     []int64 // Telegram ID пользователей с правами админа
	stopCh       chan struct{}
	stopOnce     sync.Once
	wg           sync.WaitGroup
	log          *slog.Logger
}

// NewAdminBot авторизуется в Telegram и создает бота
func NewAdminBot(token string, adminService *service.AdminService, adminIDs []int64) (*AdminBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	b := newAdminBot(api, adminService, adminIDs)
	b.log.Info("admin bot authorized", "username", api.Self.UserName)
	return b, nil
}

func newAdminBot(api botAPI, adminService *service.AdminService, adminIDs []int64) *AdminBot {
	return &AdminBot{
		bot:          api,
		adminService: adminService,
		adminIDs:     adminIDs,
		stopCh:       make(chan struct{}),
		log:          logger.Component("admin_bot"),
	}
}

// Start запускает прослушивание команд до Stop
func (b *AdminBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.bot.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			if !b.isAdmin(update.Message.From.ID) || !update.Message.IsCommand() {
				continue
			}

			b.wg.Add(1)
			go func(msg *tgbotapi.Message) {
				defer b.wg.Done()
				b.handleCommand(msg)
			}(update.Message)
		}
	}
}

// Stop плавно останавливает бота
func (b *AdminBot) Stop() {
	b.stopOnce.Do(func() {
		b.log.Info("stopping admin bot...")
		close(b.stopCh)
		b.bot.StopReceivingUpdates()
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("admin bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("admin bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *AdminBot) isAdmin(userID int64) bool {
	for _, id := range b.adminIDs {
		if id == userID {
			return true
		}
	}
	return false
}

func (b *AdminBot) handleCommand(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	reply := tgbotapi.NewMessage(msg.Chat.ID, b.respond(ctx, msg.Command(), msg.CommandArguments()))
	reply.ParseMode = tgbotapi.ModeHTML
	reply.ReplyToMessageID = msg.MessageID

	if _, err := b.bot.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

func (b *AdminBot) respond(ctx context.Context, command, args string) string {
	switch command {
	case "start", "help":
		return helpMessage
	case "stats":
		return b.handleStats(ctx)
	case "winners":
		return b.handleWinners(ctx, args)
	case "winner":
		return b.handleWinner(ctx, args)
	default:
		return "❌ Неизвестная команда. Используйте /help для списка команд."
	}
}

const helpMessage = `<b>🤖 Команды администратора</b>

/stats - Статистика акции
/winners [лимит] - Последние победители
/winner &lt;код&gt; - Найти победителя по коду приза`

func (b *AdminBot) handleStats(ctx context.Context) string {
	stats, err := b.adminService.GetStats(ctx)
	if err != nil {
		return fmt.Sprintf("Ошибка: %s", html.EscapeString(err.Error()))
	}

	return fmt.Sprintf(`<b>Статистика акции %s</b>

Победителей сохранено: %d
Активных сессий: %d

Партий начато: %d
Побед: %d
Поражений: %d
Открыто форм: %d
Ошибок сохранения: %d`,
		html.EscapeString(stats.Collection), stats.TotalWinners, stats.ActiveSessions,
		stats.GamesStarted, stats.GamesWon, stats.GamesLost, stats.PrizeClaims, stats.StoreFailures)
}

func (b *AdminBot) handleWinners(ctx context.Context, args string) string {
	limit := 10
	if args = strings.TrimSpace(args); args != "" {
		n, err := strconv.Atoi(args)
		if err != nil {
			return "Использование: /winners [лимит]"
		}
		limit = n
	}

	winners, err := b.adminService.RecentWinners(ctx, limit)
	if err != nil {
		return fmt.Sprintf("Ошибка: %s", html.EscapeString(err.Error()))
	}
	if len(winners) == 0 {
		return "Победителей пока нет"
	}

	var sb strings.Builder
	sb.WriteString("<b>Последние победители</b>\n")
	for i, w := range winners {
		fmt.Fprintf(&sb, "\n%d. %s - <code>%s</code> (%s)", i+1,
			html.EscapeString(w.Name), html.EscapeString(w.PrizeCode), html.EscapeString(w.Timestamp))
	}
	return sb.String()
}

func (b *AdminBot) handleWinner(ctx context.Context, args string) string {
	w, err := b.adminService.FindWinner(ctx, args)
	switch {
	case errors.Is(err, service.ErrEmptyPrizeCode):
		return "Использование: /winner &lt;код&gt;"
	case errors.Is(err, repository.ErrWinnerNotFound):
		return "Код не найден"
	case err != nil:
		return fmt.Sprintf("Ошибка: %s", html.EscapeString(err.Error()))
	}
	return formatWinner(w.Collection, w.WinnerSubmission)
}

func formatWinner(collection string, rec domain.WinnerSubmission) string {
	return fmt.Sprintf(`<b>Победитель</b> (%s)

Имя: %s
Телефон: %s
E-mail: %s
Код: <code>%s</code>
Время: %s`,
		html.EscapeString(collection),
		html.EscapeString(rec.Name),
		html.EscapeString(rec.Phone),
		html.EscapeString(rec.Email),
		html.EscapeString(rec.PrizeCode),
		html.EscapeString(rec.Timestamp))
}

// NotifyNewWinner уведомляет всех админов о сохраненной заявке
func (b *AdminBot) NotifyNewWinner(ctx context.Context, collection string, rec domain.WinnerSubmission) {
	message := "🎉 Новый победитель!\n\n" + formatWinner(collection, rec)

	for _, adminID := range b.adminIDs {
		if ctx.Err() != nil {
			return
		}
		msg := tgbotapi.NewMessage(adminID, message)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := b.bot.Send(msg); err != nil {
			b.log.Error("failed to notify admin", "admin_id", adminID, "error", err)
		}
	}
}
