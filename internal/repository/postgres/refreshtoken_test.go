package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apolyakov/staffdir/internal/apperrors"
	"github.com/apolyakov/staffdir/internal/models"
	"github.com/apolyakov/staffdir/internal/repository"
	"github.com/apolyakov/staffdir/internal/testutil"
)

func mustParseTime(value string) time.Time {
	dt, err := time.Parse("2006-01-02 15:04:05Z07:00", value)
	if err != nil {
		panic(err)
	}
	return dt
}

// Every ledger entry references an employee, so create one first
func createTestEmployee(t *testing.T, tx pgx.Tx, username string) models.Employee {
	t.Helper()

	repo := EmployeeRepo{DB: tx}
	employee, err := repo.CreateEmployee(t.Context(), repository.CreateEmployeeParams{
		Username:     username,
		PasswordHash: "not-a-real-hash",
		LastName:     "Ivanov",
		FirstName:    "Ivan",
		Status:       "engineer",
	})
	require.NoError(t, err, "Error happened when creating employee for the test")
	return employee
}

func Test_RefreshTokenRepo(t *testing.T) {
	t.Parallel() // It's ok to run in parallel with other tests, but not with subtests

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	makeToken := func(employeeID uuid.UUID) models.RefreshToken {
		return models.RefreshToken{
			ID:         uuid.New(),
			EmployeeID: employeeID,
			CreatedAt:  mustParseTime("2026-01-01 19:00:01Z"),
			ExpiresAt:  mustParseTime("2200-01-01 03:00:02Z"),
			Revoked:    false,
		}
	}

	t.Run("save token ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			employee := createTestEmployee(t, tx, "ivanov")
			token := makeToken(employee.ID)

			got, err := repo.Save(t.Context(), token)

			require.NoError(t, err)
			require.Equal(t, token.ID, got.ID)
			require.Equal(t, employee.ID, got.EmployeeID)
			require.WithinDuration(t, token.CreatedAt, got.CreatedAt, time.Microsecond)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, time.Microsecond)
			require.False(t, got.Revoked)
		})
	})

	t.Run("save duplicate id fails", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			employee := createTestEmployee(t, tx, "ivanov")
			token := makeToken(employee.ID)
			_, err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			_, err = repo.Save(t.Context(), token)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrTokenAlreadyExists)
		})
	})

	t.Run("save unknown employee fails", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			_, err := repo.Save(t.Context(), makeToken(uuid.New()))

			require.Error(t, err, "Entry must not be saved without the owning employee row")
		})
	})

	t.Run("get token ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			employee := createTestEmployee(t, tx, "ivanov")
			token := makeToken(employee.ID)
			_, err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			got, err := repo.Get(t.Context(), token.ID)

			require.NoError(t, err)
			require.Equal(t, token.ID, got.ID)
			require.Equal(t, employee.ID, got.EmployeeID)
			require.WithinDuration(t, token.CreatedAt, got.CreatedAt, time.Microsecond)
			require.WithinDuration(t, token.ExpiresAt, got.ExpiresAt, time.Microsecond)
		})
	})

	t.Run("get not existed token", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			_, err := repo.Get(t.Context(), uuid.New())

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrTokenNotFound)
		})
	})

	t.Run("get returns revoked entries too", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			employee := createTestEmployee(t, tx, "ivanov")
			token := makeToken(employee.ID)
			_, err := repo.Save(t.Context(), token)
			require.NoError(t, err)
			require.NoError(t, repo.Revoke(t.Context(), token.ID))

			got, err := repo.Get(t.Context(), token.ID)

			require.NoError(t, err, "Revoked entry still must be readable")
			require.True(t, got.Revoked)
		})
	})

	t.Run("revoke is idempotent", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			employee := createTestEmployee(t, tx, "ivanov")
			token := makeToken(employee.ID)
			_, err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			require.NoError(t, repo.Revoke(t.Context(), token.ID))
			require.NoError(t, repo.Revoke(t.Context(), token.ID), "Second revoke must not fail")
			require.NoError(t, repo.Revoke(t.Context(), uuid.New()), "Revoking missing entry must not fail")
		})
	})

	t.Run("revoke all for employee", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			employee := createTestEmployee(t, tx, "ivanov")
			other := createTestEmployee(t, tx, "petrov")

			first := makeToken(employee.ID)
			second := makeToken(employee.ID)
			foreign := makeToken(other.ID)
			for _, token := range []models.RefreshToken{first, second, foreign} {
				_, err := repo.Save(t.Context(), token)
				require.NoError(t, err)
			}

			err := repo.RevokeAllForEmployee(t.Context(), employee.ID)
			require.NoError(t, err)

			for _, id := range []uuid.UUID{first.ID, second.ID} {
				got, err := repo.Get(t.Context(), id)
				require.NoError(t, err)
				assert.True(t, got.Revoked)
			}

			got, err := repo.Get(t.Context(), foreign.ID)
			require.NoError(t, err)
			assert.False(t, got.Revoked, "Other employee entries must stay untouched")
		})
	})

	t.Run("revoke if usable ok", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			employee := createTestEmployee(t, tx, "ivanov")
			token := makeToken(employee.ID)
			_, err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			got, err := repo.RevokeIfUsable(t.Context(), token.ID, time.Now())

			require.NoError(t, err)
			require.Equal(t, token.ID, got.ID)
			require.Equal(t, employee.ID, got.EmployeeID)
			require.True(t, got.Revoked, "Returned entry must already carry the revoked mark")
		})
	})

	t.Run("revoke if usable fails second time", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			employee := createTestEmployee(t, tx, "ivanov")
			token := makeToken(employee.ID)
			_, err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			_, err = repo.RevokeIfUsable(t.Context(), token.ID, time.Now())
			require.NoError(t, err)

			_, err = repo.RevokeIfUsable(t.Context(), token.ID, time.Now())
			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrTokenNotUsable)
		})
	})

	t.Run("revoke if usable on expired entry", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			employee := createTestEmployee(t, tx, "ivanov")
			token := makeToken(employee.ID)
			_, err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			_, err = repo.RevokeIfUsable(t.Context(), token.ID, token.ExpiresAt.Add(time.Second))

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrTokenNotUsable)
		})
	})

	t.Run("entry expiring exactly now is not usable", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}
			employee := createTestEmployee(t, tx, "ivanov")
			token := makeToken(employee.ID)
			_, err := repo.Save(t.Context(), token)
			require.NoError(t, err)

			_, err = repo.RevokeIfUsable(t.Context(), token.ID, token.ExpiresAt)

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrTokenNotUsable)
		})
	})

	t.Run("revoke if usable on missing entry", func(t *testing.T) {
		testutil.WithTx(pg.Pool, t, func(tx pgx.Tx) {
			repo := RefreshTokenRepo{DB: tx}

			_, err := repo.RevokeIfUsable(t.Context(), uuid.New(), time.Now())

			require.Error(t, err)
			assert.ErrorIs(t, err, apperrors.ErrTokenNotUsable)
		})
	})
}
