package employee

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apolyakov/staffdir/internal/apperrors"
	"github.com/apolyakov/staffdir/internal/models"
	"github.com/apolyakov/staffdir/internal/repository"
	"github.com/apolyakov/staffdir/internal/repository/postgres"
	"github.com/apolyakov/staffdir/internal/service/auth"
	"github.com/apolyakov/staffdir/internal/testutil"
)

func strPtr(s string) *string { return &s }

func Test_EmployeeService(t *testing.T) {
	t.Parallel()

	pg := testutil.StartPostgresContainer(t)
	t.Cleanup(pg.Terminate)

	params := CreateParams{
		Username:   "ivanov",
		Password:   "pwd",
		LastName:   "Ivanov",
		FirstName:  "Ivan",
		Patronymic: "Ivanovich",
		Status:     "engineer",
	}

	// Begin new db transaction, build service over it and rollback at test end
	withService := func(dbpool *pgxpool.Pool, t *testing.T, fn func(s *Service, storage repository.Storage)) {
		testutil.WithTx(dbpool, t, func(tx pgx.Tx) {
			storage := postgres.NewStorage(tx)
			s, err := NewService(nil, storage)
			require.NoError(t, err, "employee service couldn't be created")
			fn(s, storage)
		})
	}

	createCompany := func(t *testing.T, storage repository.Storage, name string, inn string) models.Company {
		t.Helper()

		company, err := storage.Company().CreateCompany(t.Context(), repository.CreateCompanyParams{Name: name, INN: inn})
		require.NoError(t, err)
		return company
	}

	t.Run("create hashes the password", func(t *testing.T) {
		withService(pg.Pool, t, func(s *Service, storage repository.Storage) {
			got, err := s.Create(t.Context(), params)

			require.NoError(t, err)
			require.Equal(t, "ivanov", got.Username)
			require.NotEqual(t, "pwd", got.PasswordHash, "password must never be stored as is")
			require.NoError(t, auth.BcryptHasher{}.Compare(got.PasswordHash, "pwd"))
		})
	})

	t.Run("create with companies", func(t *testing.T) {
		withService(pg.Pool, t, func(s *Service, storage repository.Storage) {
			alpha := createCompany(t, storage, "Alpha", "7707083893")

			p := params
			p.CompanyIDs = []uuid.UUID{alpha.ID}
			got, err := s.Create(t.Context(), p)

			require.NoError(t, err)
			companies, err := s.ListCompanies(t.Context(), got.ID, false)
			require.NoError(t, err)
			require.Len(t, companies, 1)
			assert.Equal(t, alpha.ID, companies[0].ID)
		})
	})

	t.Run("create with unknown company rolls back", func(t *testing.T) {
		withService(pg.Pool, t, func(s *Service, storage repository.Storage) {
			p := params
			p.CompanyIDs = []uuid.UUID{uuid.New()}

			_, err := s.Create(t.Context(), p)
			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrCompanyNotFound)

			// The employee row must not survive the failed membership write
			_, err = s.GetByUsername(t.Context(), "ivanov")
			require.ErrorIs(t, err, apperrors.ErrEmployeeNotFound)
		})
	})

	t.Run("create duplicate username fails", func(t *testing.T) {
		withService(pg.Pool, t, func(s *Service, storage repository.Storage) {
			_, err := s.Create(t.Context(), params)
			require.NoError(t, err)

			_, err = s.Create(t.Context(), params)

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrEmployeeAlreadyExists)
		})
	})

	t.Run("get by id and username", func(t *testing.T) {
		withService(pg.Pool, t, func(s *Service, storage repository.Storage) {
			created, err := s.Create(t.Context(), params)
			require.NoError(t, err)

			byID, err := s.GetByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.Equal(t, created.ID, byID.ID)

			byUsername, err := s.GetByUsername(t.Context(), "ivanov")
			require.NoError(t, err)
			require.Equal(t, created.ID, byUsername.ID)
		})
	})

	t.Run("update rehashes changed password", func(t *testing.T) {
		withService(pg.Pool, t, func(s *Service, storage repository.Storage) {
			created, err := s.Create(t.Context(), params)
			require.NoError(t, err)

			got, err := s.Update(t.Context(), created.ID, UpdateParams{
				Password: strPtr("new-pwd"),
				Status:   strPtr("manager"),
			})

			require.NoError(t, err)
			require.Equal(t, "manager", got.Status)
			require.NoError(t, auth.BcryptHasher{}.Compare(got.PasswordHash, "new-pwd"))
			require.Error(t, auth.BcryptHasher{}.Compare(got.PasswordHash, "pwd"))
		})
	})

	t.Run("update keeps membership when companies not set", func(t *testing.T) {
		withService(pg.Pool, t, func(s *Service, storage repository.Storage) {
			alpha := createCompany(t, storage, "Alpha", "7707083893")
			p := params
			p.CompanyIDs = []uuid.UUID{alpha.ID}
			created, err := s.Create(t.Context(), p)
			require.NoError(t, err)

			_, err = s.Update(t.Context(), created.ID, UpdateParams{Status: strPtr("manager")})
			require.NoError(t, err)

			companies, err := s.ListCompanies(t.Context(), created.ID, false)
			require.NoError(t, err)
			require.Len(t, companies, 1, "membership must stay untouched")
		})
	})

	t.Run("update clears membership with empty set", func(t *testing.T) {
		withService(pg.Pool, t, func(s *Service, storage repository.Storage) {
			alpha := createCompany(t, storage, "Alpha", "7707083893")
			p := params
			p.CompanyIDs = []uuid.UUID{alpha.ID}
			created, err := s.Create(t.Context(), p)
			require.NoError(t, err)

			_, err = s.Update(t.Context(), created.ID, UpdateParams{CompanyIDs: []uuid.UUID{}})
			require.NoError(t, err)

			companies, err := s.ListCompanies(t.Context(), created.ID, false)
			require.NoError(t, err)
			require.Empty(t, companies)
		})
	})

	t.Run("deactivate keeps the row", func(t *testing.T) {
		withService(pg.Pool, t, func(s *Service, storage repository.Storage) {
			created, err := s.Create(t.Context(), params)
			require.NoError(t, err)

			err = s.Deactivate(t.Context(), created.ID)
			require.NoError(t, err)

			got, err := s.GetByID(t.Context(), created.ID)
			require.NoError(t, err)
			require.False(t, got.IsActive)
		})
	})

	t.Run("delete employee", func(t *testing.T) {
		withService(pg.Pool, t, func(s *Service, storage repository.Storage) {
			created, err := s.Create(t.Context(), params)
			require.NoError(t, err)

			err = s.Delete(t.Context(), created.ID)
			require.NoError(t, err)

			_, err = s.GetByID(t.Context(), created.ID)
			require.ErrorIs(t, err, apperrors.ErrEmployeeNotFound)
		})
	})

	t.Run("list companies of missing employee", func(t *testing.T) {
		withService(pg.Pool, t, func(s *Service, storage repository.Storage) {
			_, err := s.ListCompanies(t.Context(), uuid.New(), false)

			require.Error(t, err)
			require.ErrorIs(t, err, apperrors.ErrEmployeeNotFound, "missing employee must not look like empty membership")
		})
	})

	// Sanity check create sets timestamps close to now
	t.Run("create sets timestamps", func(t *testing.T) {
		withService(pg.Pool, t, func(s *Service, storage repository.Storage) {
			got, err := s.Create(t.Context(), params)

			require.NoError(t, err)
			require.WithinDuration(t, time.Now(), got.CreatedAt, time.Minute)
			require.WithinDuration(t, time.Now(), got.UpdatedAt, time.Minute)
		})
	})
}
