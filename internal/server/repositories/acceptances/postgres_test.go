package acceptances

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const acceptQuery = `(?s)INSERT\s+INTO\s+terms_acceptances\s*\(contract_id,\s*terms_version_id,\s*ip_address,\s*accepted_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4\)\s*ON\s+CONFLICT\s*\(contract_id\)\s*DO\s+NOTHING`

func TestAccept_FirstWins(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tv := int64(2)
	mock.ExpectExec(acceptQuery).WithArgs(int64(1), &tv, nil, at).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(acceptQuery).WithArgs(int64(1), &tv, nil, at.Add(time.Hour)).WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewPostgresRepository(db)

	inserted, err := repo.Accept(context.Background(), &models.TermsAcceptance{ContractID: 1, TermsVersionID: &tv, AcceptedAt: at})
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Accept(context.Background(), &models.TermsAcceptance{ContractID: 1, TermsVersionID: &tv, AcceptedAt: at.Add(time.Hour)})
	require.NoError(t, err)
	assert.False(t, inserted)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGet(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	at := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`(?s)FROM\s+terms_acceptances\s+WHERE\s+contract_id\s*=\s*\$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"contract_id", "terms_version_id", "ip_address", "accepted_at"}).
			AddRow(int64(1), nil, "192.0.2.1", at))

	a, err := NewPostgresRepository(db).Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, a.TermsVersionID)
	require.NotNil(t, a.IPAddress)
	assert.Equal(t, "192.0.2.1", *a.IPAddress)
	assert.True(t, a.AcceptedAt.Equal(at))
}

func TestGet_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+terms_acceptances`).WillReturnError(sql.ErrNoRows)

	_, err = NewPostgresRepository(db).Get(context.Background(), 1)
	assert.ErrorIs(t, err, common.ErrorNotFound)
}
