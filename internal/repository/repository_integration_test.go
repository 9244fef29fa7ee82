//go:build integration

package repository_test

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ignatzorin/otp-auth/internal/db"
	"github.com/ignatzorin/otp-auth/internal/models"
	"github.com/ignatzorin/otp-auth/internal/repository"
)

var testDB *sqlx.DB

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("otp_auth_test"),
		postgres.WithUsername("otp"),
		postgres.WithPassword("otp"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		panic("failed to start postgres container: " + err.Error())
	}

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to get connection string: " + err.Error())
	}

	migrationConn, err := db.NewPostgres(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to connect: " + err.Error())
	}
	migrator, err := db.NewMigrator(migrationConn)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to create migrator: " + err.Error())
	}
	if err := migrator.Up(); err != nil {
		_ = container.Terminate(ctx)
		panic("failed to migrate: " + err.Error())
	}
	_ = migrator.Close()

	testDB, err = db.NewPostgres(ctx, connStr)
	if err != nil {
		_ = container.Terminate(ctx)
		panic("failed to connect: " + err.Error())
	}

	code := m.Run()

	_ = testDB.Close()
	_ = container.Terminate(ctx)
	os.Exit(code)
}

func uniqueEmail() string {
	return uuid.NewString() + "@example.com"
}

func TestAccountRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAccountRepository(testDB)

	email := uniqueEmail()
	hash := "$2a$04$hash"
	created, err := repo.Create(ctx, repository.CreateAccountParams{
		Contact:      models.EmailContact(email),
		PasswordHash: &hash,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	require.NotNil(t, created.Email)
	assert.Equal(t, email, *created.Email)
	assert.Nil(t, created.Phone)

	found, err := repo.FindByEmail(ctx, email)
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.True(t, found.HasPassword())

	_, err = repo.Create(ctx, repository.CreateAccountParams{Contact: models.EmailContact(email)})
	assert.ErrorIs(t, err, repository.ErrAccountExists)

	_, err = repo.FindByPhone(ctx, "+70000000000")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestAccountRepository_PhoneAccountWithoutPassword(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewAccountRepository(testDB)

	phone := "+7" + uuid.NewString()[:10]
	created, err := repo.Create(ctx, repository.CreateAccountParams{Contact: models.PhoneContact(phone)})
	require.NoError(t, err)
	assert.False(t, created.HasPassword())

	updated, err := repo.UpdatePassword(ctx, created.ID, "$2a$04$new")
	require.NoError(t, err)
	assert.True(t, updated.HasPassword())

	byID, err := repo.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, phone, *byID.Phone)

	_, err = repo.UpdatePassword(ctx, uuid.New(), "x")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}

func TestOTPRepository_LatestActiveAndConsume(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOTPRepository(testDB)
	now := time.Now().UTC()
	identifier := uniqueEmail()

	params := repository.CreateOTPParams{
		Identifier: identifier,
		Channel:    models.ChannelEmail,
		Purpose:    models.PurposeLogin,
		CodeHash:   "first",
		ExpiresAt:  now.Add(5 * time.Minute),
	}
	_, err := repo.Create(ctx, params)
	require.NoError(t, err)

	params.CodeHash = "second"
	second, err := repo.Create(ctx, params)
	require.NoError(t, err)

	latest, err := repo.FindLatestActive(ctx, identifier, models.PurposeLogin, now)
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	_, err = repo.FindLatestActive(ctx, identifier, models.PurposeReset, now)
	assert.ErrorIs(t, err, repository.ErrOTPNotFound)

	_, err = repo.FindLatestActive(ctx, identifier, models.PurposeLogin, now.Add(10*time.Minute))
	assert.ErrorIs(t, err, repository.ErrOTPNotFound)

	ok, err := repo.MarkConsumed(ctx, latest.ID, now)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.MarkConsumed(ctx, latest.ID, now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOTPRepository_ConcurrentConsumeSingleWinner(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewOTPRepository(testDB)
	now := time.Now().UTC()

	code, err := repo.Create(ctx, repository.CreateOTPParams{
		Identifier: uniqueEmail(),
		Channel:    models.ChannelEmail,
		Purpose:    models.PurposeSignup,
		CodeHash:   "hash",
		ExpiresAt:  now.Add(time.Minute),
	})
	require.NoError(t, err)

	const workers = 16
	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.MarkConsumed(ctx, code.ID, now)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
}

func TestActionRepository_Create(t *testing.T) {
	ctx := context.Background()
	accounts := repository.NewAccountRepository(testDB)
	actions := repository.NewActionRepository(testDB)

	account, err := accounts.Create(ctx, repository.CreateAccountParams{Contact: models.EmailContact(uniqueEmail())})
	require.NoError(t, err)

	action := &models.Action{AccountID: account.ID, Type: "profile.viewed", Payload: json.RawMessage(`{"page":1}`)}
	require.NoError(t, actions.Create(ctx, action))
	assert.NotEqual(t, uuid.Nil, action.ID)
	assert.False(t, action.CreatedAt.IsZero())

	withoutPayload := &models.Action{AccountID: account.ID, Type: "ping"}
	require.NoError(t, actions.Create(ctx, withoutPayload))

	orphan := &models.Action{AccountID: uuid.New(), Type: "ping"}
	assert.ErrorIs(t, actions.Create(ctx, orphan), repository.ErrAccountNotFound)
}
