package telegram

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	app "defect-bot/internal/application"
	"defect-bot/internal/domain/entity"
	"defect-bot/internal/domain/port"
)

const (
	msgStart = `👋 Привет! Я бот контроля качества: ищу дефекты на фотографиях деталей.

📸 Отправьте мне фото детали, и я проверю её и сопоставлю с базой известных дефектов.

📋 Команды:
/check — начать проверку детали
/history — последние результаты проверок
/help — справка
/cancel — отменить текущую операцию`

	msgHelp = `ℹ️ Как пользоваться ботом:

1️⃣ Отправьте фото детали
2️⃣ Бот проверит изображение на дефекты
3️⃣ Найденный дефект сопоставляется с базой эталонных профилей

💡 Рекомендации:
• Снимайте при хорошем освещении
• Используйте однотонный фон
• Фото должно быть чётким

📋 Команды:
/check — начать проверку
/history — последние результаты
/cancel — отменить операцию`

	msgAwaitingPhoto   = "📸 Отправьте фото детали для проверки на дефекты."
	msgCancelled       = "❌ Операция отменена. Отправьте /check для новой проверки."
	msgSendPhoto       = "📸 Пожалуйста, отправьте фото детали для проверки на дефекты."
	msgUnknownCommand  = "❓ Неизвестная команда. Используйте /help для справки."
	msgProcessing      = "⏳ Обрабатываю изображение..."
	msgNoDefects       = "✅ Дефекты не обнаружены."
	msgProcessingError = "⚠️ Не удалось обработать изображение. Попробуйте сделать другое фото."
	msgNoHistory       = "📭 История проверок пока пуста."
)

// Bot представляет Telegram-бота
type Bot struct {
	api         *tgbotapi.BotAPI
	users       *app.UserService
	inspections *app.InspectionService
}

// NewBot создаёт нового бота
func NewBot(token string, users *app.UserService, inspections *app.InspectionService) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}

	log.Printf("Authorized on account %s", api.Self.UserName)

	return &Bot{
		api:         api,
		users:       users,
		inspections: inspections,
	}, nil
}

// Run запускает основной цикл обработки сообщений
func (b *Bot) Run() error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)

	ctx := context.Background()

	for update := range updates {
		if update.Message == nil {
			continue
		}

		b.handleMessage(ctx, update.Message)
	}

	return nil
}

// handleMessage обрабатывает входящее сообщение
func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	user, err := b.users.Get(ctx, msg.From.ID, msg.Chat.ID)
	if err != nil {
		log.Printf("Error getting user: %v", err)
		return
	}

	// Обработка команд
	if msg.IsCommand() {
		b.handleCommand(ctx, msg, user)
		return
	}

	// Обработка фото
	if len(msg.Photo) > 0 {
		b.handlePhoto(ctx, msg, user)
		return
	}

	// Текстовое сообщение (не команда)
	b.sendMessage(msg.Chat.ID, msgSendPhoto)
}

// handleCommand обрабатывает команды бота
func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	switch msg.Command() {
	case "start":
		b.users.Cancel(ctx, user.ID, user.ChatID)
		b.sendMessage(msg.Chat.ID, msgStart)

	case "help":
		b.sendMessage(msg.Chat.ID, msgHelp)

	case "check":
		b.users.BeginCheck(ctx, user.ID, user.ChatID)
		b.sendMessage(msg.Chat.ID, msgAwaitingPhoto)

	case "history":
		b.handleHistory(ctx, msg)

	case "cancel":
		b.users.Cancel(ctx, user.ID, user.ChatID)
		b.sendMessage(msg.Chat.ID, msgCancelled)

	default:
		b.sendMessage(msg.Chat.ID, msgUnknownCommand)
	}
}

// handlePhoto обрабатывает входящее фото
func (b *Bot) handlePhoto(ctx context.Context, msg *tgbotapi.Message, user *entity.User) {
	b.users.SetState(ctx, user.ID, user.ChatID, entity.StateProcessing)

	b.sendMessage(msg.Chat.ID, msgProcessing)

	// Получаем файл с максимальным разрешением
	photo := msg.Photo[len(msg.Photo)-1]

	imageData, err := b.downloadFile(photo.FileID)
	if err != nil {
		log.Printf("Error downloading photo: %v", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		b.users.Cancel(ctx, user.ID, user.ChatID)
		return
	}

	// Подпись к фото используется как текстовый запрос к базе профилей
	output, err := b.inspections.ProcessDefectPhoto(ctx, strconv.FormatInt(user.ID, 10), imageData, msg.Caption, port.ProfileFilter{})
	if err != nil {
		log.Printf("Error processing photo: %v", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		b.users.Cancel(ctx, user.ID, user.ChatID)
		return
	}

	b.sendMessage(msg.Chat.ID, formatInspectionOutput(output))
	b.sendReferenceImage(msg.Chat.ID, output)

	// Возвращаем в главное меню
	b.users.Cancel(ctx, user.ID, user.ChatID)
}

// handleHistory отправляет последние инциденты пользователя
func (b *Bot) handleHistory(ctx context.Context, msg *tgbotapi.Message) {
	incidents, err := b.inspections.History(ctx, strconv.FormatInt(msg.From.ID, 10), 10)
	if err != nil {
		log.Printf("Error loading history: %v", err)
		b.sendMessage(msg.Chat.ID, msgProcessingError)
		return
	}

	if len(incidents) == 0 {
		b.sendMessage(msg.Chat.ID, msgNoHistory)
		return
	}

	var sb strings.Builder
	sb.WriteString("📜 Последние проверки:\n")
	for i, inc := range incidents {
		sb.WriteString(fmt.Sprintf("\n%d. %s — %s (уверенность %.0f%%)",
			i+1, inc.CreatedAt.Local().Format("02.01 15:04"), inc.PredictedDefectType, inc.Confidence*100))
	}
	b.sendMessage(msg.Chat.ID, sb.String())
}

// formatInspectionOutput строит ответ пользователю по итогу конвейера
func formatInspectionOutput(output *app.InspectionOutput) string {
	// Страховочный NG движка — это сбой обработки, а не дефект
	if output.Vision != nil && output.Vision.Failed() {
		return msgProcessingError
	}

	var sb strings.Builder

	if output.Vision != nil {
		if output.Vision.Result == entity.VerdictNG {
			sb.WriteString(fmt.Sprintf("🔴 Визуальная инспекция: NG (аномальность %.2f)\n", output.Vision.AnomalyScore))
			for defectType, count := range output.Vision.DefectsByType() {
				sb.WriteString(fmt.Sprintf("• %s: %d\n", defectType, count))
			}
		} else {
			sb.WriteString("🟢 Визуальная инспекция: OK\n")
		}
	}

	if !output.Matched {
		sb.WriteString(msgNoDefects)
		return sb.String()
	}

	switch output.Decision.Outcome {
	case entity.MatchOK:
		sb.WriteString("\n✅ Деталь соответствует эталону «OK».")

	case entity.MatchDefect:
		best := output.Decision.Best()
		p := best.Profile
		sb.WriteString(fmt.Sprintf("\n🔎 Распознан дефект: %s", p.DefectTitle))
		sb.WriteString(fmt.Sprintf("\nТип: %s", p.DefectType))
		sb.WriteString(fmt.Sprintf("\nУверенность: %.0f%%", best.Score*100))
		if p.DefectDescription != "" {
			sb.WriteString(fmt.Sprintf("\n\n%s", p.DefectDescription))
		}
		if p.Customer != "" || p.PartCode != "" {
			sb.WriteString(fmt.Sprintf("\nКонтекст: %s %s", p.Customer, p.PartCode))
		}
		if p.Severity != "" {
			sb.WriteString(fmt.Sprintf("\nСерьёзность: %s", p.Severity))
		}
		if len(p.Keywords) > 0 {
			sb.WriteString(fmt.Sprintf("\nКлючевые слова: %s", strings.Join(p.Keywords, ", ")))
		}

	case entity.MatchUnknown:
		sb.WriteString("\n❔ Не удалось уверенно сопоставить с базой дефектов.")
		if output.Decision.Warning != "" {
			sb.WriteString(fmt.Sprintf("\nПричина: %s", output.Decision.Warning))
		}
	}

	return sb.String()
}

// sendReferenceImage отправляет эталонное фото распознанного дефекта
func (b *Bot) sendReferenceImage(chatID int64, output *app.InspectionOutput) {
	if output.Decision.Outcome != entity.MatchDefect {
		return
	}
	best := output.Decision.Best()
	if best == nil || len(best.Profile.ReferenceImages) == 0 {
		return
	}

	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(best.Profile.ReferenceImages[0]))
	photo.Caption = "Эталонное фото дефекта"
	if _, err := b.api.Send(photo); err != nil {
		log.Printf("Error sending reference image: %v", err)
	}
}

// downloadFile скачивает файл из Telegram
func (b *Bot) downloadFile(fileID string) ([]byte, error) {
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}

	fileURL := file.Link(b.api.Token)

	resp, err := http.Get(fileURL)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	return data, nil
}

// sendMessage отправляет текстовое сообщение
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		log.Printf("Error sending message: %v", err)
	}
}
