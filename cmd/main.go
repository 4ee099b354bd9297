package main

import (
	"log"

	"defect-bot/config"
	telegram "defect-bot/internal/api"
	app "defect-bot/internal/application"
	"defect-bot/internal/container"
	"defect-bot/internal/domain/port"
	"defect-bot/internal/infrastructure/embedding"
	"defect-bot/internal/infrastructure/storage"
	"defect-bot/internal/infrastructure/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if cfg.TelegramToken == "" {
		log.Fatal("TELEGRAM_TOKEN is required")
	}

	// Открываем базу профилей и инцидентов
	store, err := storage.Open(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	// Клиент сервиса эмбеддингов (CLIP)
	embedder := embedding.NewClient(cfg.EmbeddingURL)

	// Движок визуальной инспекции. Без тега сборки gocv конструктор
	// вернёт ошибку, и бот работает в режиме «только сопоставление».
	var inspector port.VisionInspector
	if cfg.EnableVisionPipeline {
		engine, err := vision.NewEngine(vision.Config{
			AnomalyThreshold:         cfg.AnomalyThreshold,
			EnableCrackDetector:      cfg.EnableCrackDetector,
			EnableHoleDetector:       cfg.EnableHoleDetector,
			EnableAnomalyDetector:    cfg.EnableAnomalyDetector,
			CrackMinLength:           cfg.CrackMinLength,
			CrackMaxWidth:            cfg.CrackMaxWidth,
			CrackConfidenceThreshold: cfg.CrackConfidenceThreshold,
			HoleMinArea:              cfg.HoleMinArea,
			HoleMaxArea:              cfg.HoleMaxArea,
			HoleCircularityThreshold: cfg.HoleCircularityThreshold,
			ResizeWidth:              cfg.ResizeWidth,
			ResizeHeight:             cfg.ResizeHeight,
		})
		if err != nil {
			log.Printf("Vision pipeline unavailable, matching on full frames: %v", err)
		} else {
			if cfg.EnableAnomalyDetector && cfg.MemoryBankPath != "" {
				if err := engine.LoadMemoryBank(cfg.MemoryBankPath); err != nil {
					log.Printf("Failed to load memory bank: %v", err)
				}
			}
			inspector = engine
		}
	}

	// Собираем сервисы приложения
	appContainer := container.New(container.Deps{
		Users:     storage.NewMemoryUserRepository(),
		Inspector: inspector,
		Embedder:  embedder,
		Profiles:  store,
		Incidents: store,
		Catalog:   store,
		Matcher: app.MatcherConfig{
			SimilarityThreshold: cfg.SimilarityThreshold,
			MarginThreshold:     cfg.MarginThreshold,
			OKThreshold:         cfg.OKThreshold,
			ImageWeight:         cfg.ImageWeight,
			TextWeight:          cfg.TextWeight,
			TopK:                cfg.TopK,
		},
		MatchOnOK: cfg.MatchOnOK,
	})

	// Создаём бота
	bot, err := telegram.NewBot(cfg.TelegramToken, appContainer.UserService, appContainer.InspectionService)
	if err != nil {
		log.Fatalf("Failed to create bot: %v", err)
	}

	log.Println("Bot is running...")
	if err := bot.Run(); err != nil {
		log.Fatalf("Bot error: %v", err)
	}
}
