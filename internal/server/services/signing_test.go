package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/logging"
	"github.com/dmitrijs2005/contractsign/internal/server/accesstoken"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
	"github.com/dmitrijs2005/contractsign/internal/server/storage"
)

const clientEmail = "jane@example.com"

func pendingContract(id int64) *models.Contract {
	return &models.Contract{
		ID:          id,
		ClientName:  "Jane Doe",
		ClientEmail: clientEmail,
		ProjectType: "Solar install",
		QuoteNumber: "Q-1001",
		Status:      models.StatusPending,
	}
}

func item(desc string, qty models.Quantity, unit models.Money) *models.LineItem {
	return &models.LineItem{Description: desc, Quantity: qty, UnitPrice: unit, TotalPrice: qty.Times(unit)}
}

func statelessClaims(id int64) *accesstoken.Claims {
	return &accesstoken.Claims{Email: clientEmail, ContractID: id}
}

func newSigningService(t *testing.T, db *sql.DB, st *memStore, n *recordingNotifier, store storage.ObjectStore) *SigningService {
	t.Helper()
	s := NewSigningService(db, &fakeRepoManager{s: st}, testConfig(), n, store, logging.Nop{})
	s.now = fixedClock
	return s
}

func TestViewContract_DerivedSchedule(t *testing.T) {
	db, mock := newSQLMockDB(t)
	st := newMemStore()
	st.addContract(pendingContract(1), item("Panels", 200, models.Cents(50, 0)))

	s := newSigningService(t, db, st, &recordingNotifier{}, nil)

	view, err := s.ViewContract(context.Background(), statelessClaims(1))
	require.NoError(t, err)

	assert.Equal(t, models.Cents(100, 0), view.Total)
	assert.False(t, view.ScheduleOverridden)
	require.Len(t, view.Schedule, 2)
	assert.Equal(t, view.Total, models.SumStages(view.Schedule))
	assert.True(t, view.Terms.Placeholder)
	assert.Equal(t, PlaceholderTerms, view.Terms.Content)
	assert.Nil(t, view.Acceptance)
	assert.Nil(t, view.Signature)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestViewContract_StoredTotalAndOverride(t *testing.T) {
	db, _ := newSQLMockDB(t)
	st := newMemStore()
	c := pendingContract(2)
	total := models.Cents(20000, 0)
	c.TotalAmount = &total
	// inconsistent stored line total is recomputed for display
	li := item("Battery", 100, models.Cents(9000, 0))
	li.TotalPrice = models.Cents(1, 0)
	st.addContract(c, li)
	st.stages[2] = []models.Stage{
		{Stage: "Deposit", Amount: models.Cents(5000, 0)},
		{Stage: "Balance", Amount: models.Cents(15000, 0)},
	}
	st.terms = []*models.TermsVersion{{ID: 7, Version: "v2026.01.01.1", Content: "Be nice.", IsActive: true}}

	s := newSigningService(t, db, st, &recordingNotifier{}, nil)

	view, err := s.ViewContract(context.Background(), statelessClaims(2))
	require.NoError(t, err)

	assert.Equal(t, total, view.Total)
	assert.True(t, view.ScheduleOverridden)
	assert.Len(t, view.Schedule, 2)
	assert.Equal(t, models.Cents(9000, 0), view.LineItems[0].TotalPrice)
	require.NotNil(t, view.Terms.ID)
	assert.Equal(t, int64(7), *view.Terms.ID)
	assert.False(t, view.Terms.Placeholder)
}

func TestViewContract_Errors(t *testing.T) {
	tests := []struct {
		name   string
		claims *accesstoken.Claims
		setup  func(*memStore)
		want   error
	}{
		{
			name:   "email mismatch",
			claims: &accesstoken.Claims{Email: "other@example.com", ContractID: 1},
			want:   common.ErrInvalidToken,
		},
		{
			name:   "email differs only by case",
			claims: &accesstoken.Claims{Email: "JANE@Example.com", ContractID: 1},
		},
		{
			name:   "single use claims carry no email",
			claims: &accesstoken.Claims{ContractID: 1, SingleUse: true, Token: "t"},
		},
		{
			name:   "missing contract",
			claims: statelessClaims(99),
			want:   common.ErrorNotFound,
		},
		{
			name:   "storage outage",
			claims: statelessClaims(1),
			setup:  func(st *memStore) { st.err = errors.New("connection refused") },
			want:   common.ErrTemporaryFailure,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, _ := newSQLMockDB(t)
			st := newMemStore()
			st.addContract(pendingContract(1))
			if tt.setup != nil {
				tt.setup(st)
			}
			s := newSigningService(t, db, st, &recordingNotifier{}, nil)

			_, err := s.ViewContract(context.Background(), tt.claims)
			if tt.want == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAcceptTerms_Idempotent(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectCommit()

	st := newMemStore()
	st.addContract(pendingContract(1))
	st.terms = []*models.TermsVersion{{ID: 3, Version: "v2026.01.01.1", Content: "x", IsActive: true}}

	s := newSigningService(t, db, st, &recordingNotifier{}, nil)
	meta := ClientMeta{IP: "203.0.113.9"}

	first, err := s.AcceptTerms(context.Background(), statelessClaims(1), meta)
	require.NoError(t, err)

	s.now = func() time.Time { return fixedNow.Add(time.Hour) }
	second, err := s.AcceptTerms(context.Background(), statelessClaims(1), meta)
	require.NoError(t, err)

	assert.Equal(t, fixedNow, first.AcceptedAt)
	assert.Equal(t, first.AcceptedAt, second.AcceptedAt)
	require.NotNil(t, first.TermsVersionID)
	assert.Equal(t, int64(3), *first.TermsVersionID)
	assert.Equal(t, []string{models.ActivityTermsAccepted}, st.actions())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestAcceptTerms_WithoutPublishedTerms(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	st := newMemStore()
	st.addContract(pendingContract(1))
	s := newSigningService(t, db, st, &recordingNotifier{}, nil)

	acc, err := s.AcceptTerms(context.Background(), statelessClaims(1), ClientMeta{})
	require.NoError(t, err)
	assert.Nil(t, acc.TermsVersionID)
	assert.Nil(t, acc.IPAddress)
}

func acceptedStore(status models.Status) *memStore {
	st := newMemStore()
	c := pendingContract(1)
	c.Status = status
	st.addContract(c, item("Panels", 100, models.Cents(4000, 0)))
	st.acceptances[1] = &models.TermsAcceptance{ContractID: 1, AcceptedAt: fixedNow}
	return st
}

func TestSign_Success(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	st := acceptedStore(models.StatusPending)
	n := &recordingNotifier{}
	s := newSigningService(t, db, st, n, nil)

	sig, err := s.Sign(context.Background(), statelessClaims(1), SignRequest{
		SignatureData: "  Jane Doe ",
		Kind:          "typed",
		AgreesToTerms: true,
	}, ClientMeta{IP: "203.0.113.9", UserAgent: "test"})
	require.NoError(t, err)

	assert.Equal(t, "Jane Doe", sig.SignatureData)
	assert.Equal(t, models.SignatureTyped, sig.Kind)
	assert.Equal(t, "Jane Doe", sig.SignedByName)
	assert.Equal(t, clientEmail, sig.SignedByEmail)
	require.NotNil(t, sig.UserAgent)
	assert.Equal(t, "test", *sig.UserAgent)
	assert.Equal(t, models.StatusSigned, st.contracts[1].Status)
	assert.Equal(t, []string{models.ActivityContractSigned}, st.actions())

	require.Len(t, n.sent, 1)
	assert.Equal(t, clientEmail, n.sent[0].to)
	assert.Contains(t, n.sent[0].text, "4000.00")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSign_FromOverdue(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	st := acceptedStore(models.StatusOverdue)
	s := newSigningService(t, db, st, &recordingNotifier{}, nil)

	_, err := s.Sign(context.Background(), statelessClaims(1), SignRequest{SignatureData: "J", AgreesToTerms: true}, ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSigned, st.contracts[1].Status)
}

func TestSign_InputValidation(t *testing.T) {
	db, mock := newSQLMockDB(t)
	s := newSigningService(t, db, acceptedStore(models.StatusPending), &recordingNotifier{}, nil)

	_, err := s.Sign(context.Background(), statelessClaims(1), SignRequest{SignatureData: "J"}, ClientMeta{})
	require.ErrorIs(t, err, common.ErrTermsNotAgreed)

	_, err = s.Sign(context.Background(), statelessClaims(1), SignRequest{SignatureData: "   ", AgreesToTerms: true}, ClientMeta{})
	require.ErrorIs(t, err, common.ErrEmptySignature)

	// neither case touches the database
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSign_RequiresAcceptance(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	st := newMemStore()
	st.addContract(pendingContract(1))
	s := newSigningService(t, db, st, &recordingNotifier{}, nil)

	_, err := s.Sign(context.Background(), statelessClaims(1), SignRequest{SignatureData: "J", AgreesToTerms: true}, ClientMeta{})
	require.ErrorIs(t, err, common.ErrTermsNotAccepted)
	assert.Equal(t, models.StatusPending, st.contracts[1].Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSign_Twice(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()
	mock.ExpectBegin()
	mock.ExpectRollback()

	st := acceptedStore(models.StatusPending)
	n := &recordingNotifier{}
	s := newSigningService(t, db, st, n, nil)
	req := SignRequest{SignatureData: "J", AgreesToTerms: true}

	_, err := s.Sign(context.Background(), statelessClaims(1), req, ClientMeta{})
	require.NoError(t, err)

	_, err = s.Sign(context.Background(), statelessClaims(1), req, ClientMeta{})
	require.ErrorIs(t, err, common.ErrAlreadySigned)
	assert.True(t, common.IsTerminal(err))

	assert.Len(t, st.signatures, 1)
	assert.Len(t, n.sent, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSign_LostStatusRace(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	st := acceptedStore(models.StatusPending)
	st.markSignedLoses = true
	s := newSigningService(t, db, st, &recordingNotifier{}, nil)

	_, err := s.Sign(context.Background(), statelessClaims(1), SignRequest{SignatureData: "J", AgreesToTerms: true}, ClientMeta{})
	require.ErrorIs(t, err, common.ErrInvalidTransition)
}

func TestSign_InvalidStatus(t *testing.T) {
	for _, status := range []models.Status{models.StatusCompleted, models.StatusArchived} {
		t.Run(string(status), func(t *testing.T) {
			db, mock := newSQLMockDB(t)
			mock.ExpectBegin()
			mock.ExpectRollback()

			st := acceptedStore(status)
			s := newSigningService(t, db, st, &recordingNotifier{}, nil)

			_, err := s.Sign(context.Background(), statelessClaims(1), SignRequest{SignatureData: "J", AgreesToTerms: true}, ClientMeta{})
			require.ErrorIs(t, err, common.ErrInvalidTransition)
			assert.Empty(t, st.signatures)
		})
	}
}

func TestSign_ConsumesSingleUseToken(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	st := acceptedStore(models.StatusPending)
	token := strings.Repeat("ab", 32)
	st.tokens[token] = &models.AccessTokenRecord{Token: token, ContractID: 1, ExpiresAt: fixedNow.Add(time.Hour)}
	s := newSigningService(t, db, st, &recordingNotifier{}, nil)

	claims := &accesstoken.Claims{ContractID: 1, Token: token, SingleUse: true}
	sig, err := s.Sign(context.Background(), claims, SignRequest{SignatureData: "J", Kind: "drawn", AgreesToTerms: true, SignerName: "J. Doe"}, ClientMeta{})
	require.NoError(t, err)

	assert.Equal(t, "J. Doe", sig.SignedByName)
	assert.Equal(t, clientEmail, sig.SignedByEmail)
	assert.Equal(t, models.SignatureDrawn, sig.Kind)
	assert.True(t, st.tokens[token].Used)
	require.NotNil(t, st.tokens[token].UsedAt)
	assert.Equal(t, fixedNow, *st.tokens[token].UsedAt)
}

func TestSign_NotificationFailureIsNotFatal(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	st := acceptedStore(models.StatusPending)
	s := newSigningService(t, db, st, &recordingNotifier{err: errors.New("smtp down")}, nil)

	_, err := s.Sign(context.Background(), statelessClaims(1), SignRequest{SignatureData: "J", AgreesToTerms: true}, ClientMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.StatusSigned, st.contracts[1].Status)
}

func TestSign_StorageFailureIsTemporary(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin()
	mock.ExpectRollback()

	st := acceptedStore(models.StatusPending)
	st.err = errors.New("connection reset")
	s := newSigningService(t, db, st, &recordingNotifier{}, nil)

	_, err := s.Sign(context.Background(), statelessClaims(1), SignRequest{SignatureData: "J", AgreesToTerms: true}, ClientMeta{})
	require.ErrorIs(t, err, common.ErrTemporaryFailure)
	assert.False(t, common.IsTerminal(err))
}

func TestSign_BeginFails(t *testing.T) {
	db, mock := newSQLMockDB(t)
	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	s := newSigningService(t, db, acceptedStore(models.StatusPending), &recordingNotifier{}, nil)

	_, err := s.Sign(context.Background(), statelessClaims(1), SignRequest{SignatureData: "J", AgreesToTerms: true}, ClientMeta{})
	require.ErrorIs(t, err, common.ErrTemporaryFailure)
	require.NoError(t, mock.ExpectationsWereMet())
}

