package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"os/exec"
	"sync"
	"testing"
	"time"

	"herald/internal/domain/entity"
	"herald/internal/domain/repository"
	"herald/internal/infra/persistence/migrations"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func skipIfNoDocker(t *testing.T) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if exec.CommandContext(ctx, "docker", "info").Run() != nil {
		t.Skip("Skipping test: Docker not available")
	}
}

// startPostgres runs a migrated Postgres container for the duration of the test.
func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	skipIfNoDocker(t)

	ctx := context.Background()
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "herald",
				"POSTGRES_PASSWORD": "herald",
				"POSTGRES_DB":       "herald",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)
	dsn := fmt.Sprintf("postgres://herald:herald@%s:%s/herald?sslmode=disable", host, port.Port())

	// Run closes the connection it is given.
	sqlDB, err := sql.Open("pgx", dsn)
	require.NoError(t, err)
	require.NoError(t, migrations.Run(sqlDB, migrations.Up))

	db, err := gorm.Open(gormpg.Open(dsn), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	t.Cleanup(func() {
		if conn, err := db.DB(); err == nil {
			conn.Close()
		}
	})

	return db
}

func createAccount(t *testing.T, repo repository.AccountRepository, email string) *entity.Account {
	t.Helper()

	account := &entity.Account{
		Email:        email,
		DisplayName:  email,
		PasswordHash: "$2a$10$hash",
	}
	require.NoError(t, repo.CreateAccount(context.Background(), account))

	return account
}

func TestAccountRepository_RotateRefreshFingerprint(t *testing.T) {
	db := startPostgres(t)
	repo := NewAccountRepository(db)
	ctx := context.Background()

	account := createAccount(t, repo, "rotate@example.com")
	first := "fp-1"
	require.NoError(t, repo.SetRefreshFingerprint(ctx, account.ID, &first))

	t.Run("matching fingerprint rotates", func(t *testing.T) {
		require.NoError(t, repo.RotateRefreshFingerprint(ctx, account.ID, "fp-1", "fp-2"))

		stored, err := repo.FindAccountByID(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, stored.RefreshFingerprint)
		assert.Equal(t, "fp-2", *stored.RefreshFingerprint)
	})

	t.Run("replayed fingerprint is rejected", func(t *testing.T) {
		err := repo.RotateRefreshFingerprint(ctx, account.ID, "fp-1", "fp-3")
		assert.ErrorIs(t, err, repository.ErrFingerprintMismatch)

		stored, err := repo.FindAccountByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, "fp-2", *stored.RefreshFingerprint)
	})

	t.Run("revoked fingerprint never matches", func(t *testing.T) {
		require.NoError(t, repo.SetRefreshFingerprint(ctx, account.ID, nil))

		err := repo.RotateRefreshFingerprint(ctx, account.ID, "fp-2", "fp-3")
		assert.ErrorIs(t, err, repository.ErrFingerprintMismatch)
	})

	t.Run("concurrent rotations have one winner", func(t *testing.T) {
		start := "fp-race"
		require.NoError(t, repo.SetRefreshFingerprint(ctx, account.ID, &start))

		const racers = 8
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			winners  []string
			mismatch int
		)
		for i := 0; i < racers; i++ {
			wg.Add(1)
			go func(next string) {
				defer wg.Done()

				err := repo.RotateRefreshFingerprint(ctx, account.ID, start, next)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					winners = append(winners, next)
				case assert.ErrorIs(t, err, repository.ErrFingerprintMismatch):
					mismatch++
				}
			}(fmt.Sprintf("fp-next-%d", i))
		}
		wg.Wait()

		require.Len(t, winners, 1)
		assert.Equal(t, racers-1, mismatch)

		stored, err := repo.FindAccountByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, winners[0], *stored.RefreshFingerprint)
	})
}

func TestNotificationRepository_MarkRead(t *testing.T) {
	db := startPostgres(t)
	accounts := NewAccountRepository(db)
	repo := NewNotificationRepository(db)
	ctx := context.Background()

	recipient := createAccount(t, accounts, "recipient@example.com")
	sender := createAccount(t, accounts, "sender@example.com")

	notify := func(message string) *entity.Notification {
		n := &entity.Notification{
			RecipientID: recipient.ID,
			SenderID:    sender.ID,
			Type:        entity.NotificationTypeFollow,
			Message:     message,
		}
		require.NoError(t, repo.CreateNotification(ctx, n))

		return n
	}
	first := notify("first")
	notify("second")
	notify("third")

	unread, err := repo.CountUnread(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), unread)

	readAt := time.Now().UTC().Truncate(time.Microsecond)
	changed, err := repo.MarkRead(ctx, first.ID, recipient.ID, readAt)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = repo.MarkRead(ctx, first.ID, recipient.ID, readAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, changed, "second mark is a no-op")

	stored, err := repo.FindNotificationByID(ctx, first.ID, recipient.ID)
	require.NoError(t, err)
	assert.True(t, stored.Read)
	require.NotNil(t, stored.ReadAt)
	assert.True(t, readAt.Equal(*stored.ReadAt), "read_at keeps its first value")

	unread, err = repo.CountUnread(ctx, recipient.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), unread)

	t.Run("other recipient cannot mark", func(t *testing.T) {
		second := notify("fourth")
		changed, err := repo.MarkRead(ctx, second.ID, sender.ID, readAt)
		require.NoError(t, err)
		assert.False(t, changed)
	})

	t.Run("mark all counts only unread", func(t *testing.T) {
		marked, err := repo.MarkAllRead(ctx, recipient.ID, readAt)
		require.NoError(t, err)
		assert.Equal(t, int64(3), marked)

		marked, err = repo.MarkAllRead(ctx, recipient.ID, readAt)
		require.NoError(t, err)
		assert.Zero(t, marked)

		unread, err := repo.CountUnread(ctx, recipient.ID)
		require.NoError(t, err)
		assert.Zero(t, unread)
	})

	t.Run("unknown notification", func(t *testing.T) {
		changed, err := repo.MarkRead(ctx, uuid.New(), recipient.ID, readAt)
		require.NoError(t, err)
		assert.False(t, changed)
	})
}
