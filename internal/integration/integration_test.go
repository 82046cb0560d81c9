package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"interanxy-service/internal/ai"
	"interanxy-service/internal/app"
	"interanxy-service/internal/domain"
	"interanxy-service/internal/infra/memory"
	infrapg "interanxy-service/internal/infra/postgres"
	pgmigrations "interanxy-service/internal/infra/postgres/migrations"
	infraredis "interanxy-service/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestLearnerJourneyEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	applyMigrations(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	rooms := memory.NewRoomCache(infrapg.NewRoomStore(pool), 5*time.Minute)
	students := infraredis.NewStudentStore(redisClient, time.Hour)
	users := memory.NewUserStore()
	advisor := ai.NewClient("", "", "", 0)

	monitor := app.NewMonitor()
	feed := app.NewStatsFeed(rooms, students, monitor)
	accounts := app.NewAccountService(users, []byte("it-secret"), time.Hour)
	roomSvc := app.NewRoomService(rooms, users, students, feed)
	workspace := app.NewWorkspaceService(rooms, students, advisor, feed)
	flows := app.NewFlowManager(rooms, students, advisor, feed)

	room, err := roomSvc.Create(ctx, "Rombel A", "Probabilitas")
	if err != nil {
		t.Fatalf("create room: %v", err)
	}
	questions := []domain.Question{
		{ID: "q1", Type: domain.QuestionShortAnswer, Text: "Ibukota Indonesia?", Correct: "Jakarta"},
		{ID: "q2", Type: domain.QuestionBoolean, Text: "2+2=4", Correct: "Benar"},
	}
	if _, err := roomSvc.Update(ctx, room.ID, app.RoomUpdate{Questions: &questions}); err != nil {
		t.Fatalf("set questions: %v", err)
	}

	learner, _, err := accounts.Register("Andi", "rahasia", domain.RoleLearner)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	learner, err = roomSvc.Join(ctx, learner.ID, room.Code)
	if err != nil {
		t.Fatalf("join: %v", err)
	}

	welcome, _, _, err := workspace.Enter(ctx, learner, room.ID)
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	if welcome != ai.FallbackWelcome {
		t.Fatalf("expected fallback welcome, got %q", welcome)
	}

	if _, err := flows.Start(ctx, learner, room.ID); err != nil {
		t.Fatalf("start quiz: %v", err)
	}
	if _, err := flows.Answer(ctx, learner, room.ID, 0, "jakarta"); err != nil {
		t.Fatalf("answer q1: %v", err)
	}
	status, err := flows.Answer(ctx, learner, room.ID, 1, "Benar")
	if err != nil {
		t.Fatalf("answer q2: %v", err)
	}
	if status.State != app.StateReflecting || status.Score != 100 {
		t.Fatalf("expected reflecting at 100, got %+v", status)
	}
	if _, err := flows.SubmitReflection(ctx, learner, room.ID, "Lebih tenang dari dugaan."); err != nil {
		t.Fatalf("reflection: %v", err)
	}

	// The row round-trips Redis, the room round-trips Postgres.
	stored, err := students.Get(ctx, domain.StudentKey{StudentID: learner.ID, RoomID: room.ID})
	if err != nil {
		t.Fatalf("get student: %v", err)
	}
	if stored.Score != 100 || len(stored.Reflections) != 1 {
		t.Fatalf("unexpected stored row: %+v", stored)
	}

	stats, err := roomSvc.Stats(ctx, room.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	group, ok := stats.Groups[domain.DefaultGroup]
	if !ok || group.Average != 100 {
		t.Fatalf("unexpected stats: %+v", stats.Groups)
	}
	if group.Tier.Label != "EXCELLENT GROWTH" {
		t.Fatalf("unexpected tier: %+v", group.Tier)
	}
}

func applyMigrations(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "rooms", "POSTGRES_PASSWORD": "roomspass", "POSTGRES_DB": "roomsdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://rooms:roomspass@%s:%s/roomsdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
