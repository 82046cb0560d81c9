package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"interanxy-service/internal/ai"
	"interanxy-service/internal/app"
	"interanxy-service/internal/config"
	"interanxy-service/internal/domain"
	"interanxy-service/internal/infra/memory"
	pgstore "interanxy-service/internal/infra/postgres"
	redisstore "interanxy-service/internal/infra/redis"
	transport "interanxy-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the learning-room server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 24*time.Hour)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var roomRepo app.RoomRepository
	if pool != nil {
		roomTTL := config.TTLDuration(cfg.Rooms.TTL, 10*time.Minute)
		roomRepo = memory.NewRoomCache(pgstore.NewRoomStore(pool), roomTTL)
	} else {
		roomRepo = memory.NewSeededRoomStore(sampleRooms())
	}

	var studentRepo app.StudentRepository
	if redisClient != nil {
		studentRepo = redisstore.NewStudentStore(redisClient, redisTTL)
	} else {
		studentRepo = memory.NewSeededStudentStore(sampleStudents())
	}
	userRepo := memory.NewUserStore()

	apiKey := os.Getenv("AI_API_KEY")
	if apiKey == "" {
		log.Println("AI_API_KEY not set, advisor runs in fallback-only mode")
	}
	advisor := ai.NewClient(cfg.AI.BaseURL, apiKey, cfg.AI.Model, config.TTLDuration(cfg.AI.Timeout, ai.DefaultTimeout))

	secret := config.Env("AUTH_SECRET", cfg.Auth.Secret)
	if secret == "" {
		secret = "dev-only-secret"
		log.Println("auth secret not configured, using an ephemeral dev secret")
	}

	monitor := app.NewMonitor()
	feed := app.NewStatsFeed(roomRepo, studentRepo, monitor)
	accounts := app.NewAccountService(userRepo, []byte(secret), config.TTLDuration(cfg.Auth.TokenTTL, 12*time.Hour))
	roomSvc := app.NewRoomService(roomRepo, userRepo, studentRepo, feed)
	workspace := app.NewWorkspaceService(roomRepo, studentRepo, advisor, feed)
	flows := app.NewFlowManager(roomRepo, studentRepo, advisor, feed)

	api := transport.NewAPI(accounts, roomSvc, workspace, flows, transport.NewMonitorHandler(roomSvc, monitor))
	mux := http.NewServeMux()
	api.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting interanxy service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleRooms seeds the in-memory store with a ready-to-demo class; with
// Postgres configured rooms come from the database instead.
func sampleRooms() []domain.Room {
	return []domain.Room{
		{
			ID:      "room-1",
			Name:    "Rombel A - Teori Peluang",
			Code:    "PROB01",
			Subject: "Probabilitas",
			Challenges: []domain.Challenge{
				{
					ID:      "ch-1",
					Title:   "Kasus Dadu Standar",
					Problem: "Dua dadu dilempar bersamaan. Tentukan peluang jumlah mata dadu sama dengan 8.",
					WorkspaceFields: []domain.WorkspaceField{
						{ID: "f1", Label: "Eksplorasi Ruang Sampel"},
						{ID: "f2", Label: "Analisis Titik Sampel (Jumlah 8)"},
						{ID: "f3", Label: "Konstruksi Argumen Rasio"},
					},
				},
				{
					ID:      "ch-2",
					Title:   "Kasus Koin & Dadu",
					Problem: "Satu koin dan satu dadu dilempar. Berapa peluang muncul Gambar dan angka genap?",
					WorkspaceFields: []domain.WorkspaceField{
						{ID: "f1", Label: "Identifikasi Kejadian Terpisah"},
						{ID: "f2", Label: "Perhitungan Aturan Perkalian"},
					},
				},
			},
			Questions: []domain.Question{
				{
					ID:   "q1",
					Type: domain.QuestionMultipleChoice,
					Text: `Manakah pernyataan yang paling tepat menggambarkan makna "Peluang"?`,
					Options: []string{
						"Kepastian hasil",
						"Ukuran kemungkinan kejadian",
						"Jumlah total sampel",
						"Hasil bagi angka dadu",
					},
					Correct: "Ukuran kemungkinan kejadian",
				},
				{
					ID:      "q2",
					Type:    domain.QuestionBoolean,
					Text:    "Apakah mungkin probabilitas suatu kejadian bernilai 1.5?",
					Correct: "Salah",
				},
				{
					ID:      "q3",
					Type:    domain.QuestionShortAnswer,
					Text:    "Jika peluang hujan 0.7, berapa peluang TIDAK hujan?",
					Correct: "0.3",
				},
			},
			Tiers: domain.DefaultTiers(),
		},
	}
}

func sampleStudents() []*domain.StudentData {
	return []*domain.StudentData{
		{
			StudentID: "andi",
			Name:      "Andi",
			RoomID:    "room-1",
			Group:     "Kelompok 1",
			ChallengeAnswers: map[string]map[string]string{
				"ch-1": {"f1": "36 total", "f2": "ada 5 pasang", "f3": "5/36"},
			},
			FactAnswers: []string{"Ukuran kemungkinan kejadian", "Salah", "0.3"},
			Reflections: []string{"Saya sangat yakin dengan konsep peluang."},
			Score:       100,
			Status:      domain.StatusActive,
		},
	}
}
