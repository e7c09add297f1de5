package paymentstages

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestList(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"stage", "amount", "description"}).
		AddRow("Deposit", "1000.00", "Up front").
		AddRow("Completion", "500.50", "On handover")
	mock.ExpectQuery(`(?s)SELECT\s+stage,\s*amount,\s*description\s+FROM\s+payment_stages\s+WHERE\s+contract_id\s*=\s*\$1`).
		WithArgs(int64(2)).
		WillReturnRows(rows)

	got, err := NewPostgresRepository(db).List(context.Background(), 2)
	require.NoError(t, err)

	want := []models.Stage{
		{Stage: "Deposit", Amount: 1000_00, Description: "Up front"},
		{Stage: "Completion", Amount: 500_50, Description: "On handover"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("List mismatch (-want +got):\n%s", diff)
	}
}

func TestList_NoOverride(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`FROM\s+payment_stages`).WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"stage", "amount", "description"}))

	got, err := NewPostgresRepository(db).List(context.Background(), 2)
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestReplace(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	ins := `(?s)INSERT\s+INTO\s+payment_stages\s*\(contract_id,\s*stage,\s*amount,\s*description,\s*sort_order\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5\)`
	mock.ExpectExec(`DELETE\s+FROM\s+payment_stages\s+WHERE\s+contract_id\s*=\s*\$1`).
		WithArgs(int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(ins).WithArgs(int64(2), "Deposit", "600.00", "", 0).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(ins).WithArgs(int64(2), "Completion", "400.00", "", 1).WillReturnResult(sqlmock.NewResult(2, 1))

	err = NewPostgresRepository(db).Replace(context.Background(), 2, []models.Stage{
		{Stage: "Deposit", Amount: 600_00},
		{Stage: "Completion", Amount: 400_00},
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplace_InsertError(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE\s+FROM\s+payment_stages`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT\s+INTO\s+payment_stages`).WillReturnError(errors.New("boom"))

	err = NewPostgresRepository(db).Replace(context.Background(), 2, []models.Stage{{Stage: "A", Amount: 1}})
	require.Error(t, err)
}
