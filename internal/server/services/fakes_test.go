package services

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/contractsign/internal/common"
	"github.com/dmitrijs2005/contractsign/internal/dbx"
	"github.com/dmitrijs2005/contractsign/internal/server/config"
	"github.com/dmitrijs2005/contractsign/internal/server/models"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/acceptances"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/accesstokens"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/activity"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/contracts"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/lineitems"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/paymentstages"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/signatures"
	"github.com/dmitrijs2005/contractsign/internal/server/repositories/terms"
)

// --- helpers ---

func newSQLMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func testConfig() *config.Config {
	return &config.Config{
		LinkBaseURL:            "https://example.com/client",
		LinkTokenMaxAge:        24 * time.Hour,
		SingleUseTokenValidity: 7 * 24 * time.Hour,
		SingleUseGrace:         24 * time.Hour,
		StoreTimeout:           time.Second,
		NotifyTimeout:          time.Second,
		ArchiveRetention:       365 * 24 * time.Hour,
		CompanyName:            "Acme Solar",
	}
}

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

// memStore is an in-memory stand-in for all repositories.
type memStore struct {
	mu sync.Mutex

	contracts   map[int64]*models.Contract
	items       map[int64][]*models.LineItem
	stages      map[int64][]models.Stage
	signatures  map[int64]*models.Signature
	terms       []*models.TermsVersion
	acceptances map[int64]*models.TermsAcceptance
	tokens      map[string]*models.AccessTokenRecord
	activity    []*models.Activity
	nextID      int64

	// err, when set, is returned by every repository call.
	err error
	// markSignedLoses makes MarkSigned behave as if another transaction
	// signed first.
	markSignedLoses bool

	overdue, archived, cleaned int64
	sweepCutoff                time.Time

	// termsOps records terms write calls in order.
	termsOps []string
}

func newMemStore() *memStore {
	return &memStore{
		contracts:   map[int64]*models.Contract{},
		items:       map[int64][]*models.LineItem{},
		stages:      map[int64][]models.Stage{},
		signatures:  map[int64]*models.Signature{},
		acceptances: map[int64]*models.TermsAcceptance{},
		tokens:      map[string]*models.AccessTokenRecord{},
		nextID:      100,
	}
}

func (s *memStore) addContract(c *models.Contract, items ...*models.LineItem) {
	s.contracts[c.ID] = c
	for _, li := range items {
		li.ContractID = c.ID
	}
	s.items[c.ID] = items
}

func (s *memStore) actions() []string {
	var out []string
	for _, a := range s.activity {
		out = append(out, a.Action)
	}
	return out
}

type fakeRepoManager struct{ s *memStore }

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error    { return nil }
func (m *fakeRepoManager) Contracts(dbx.DBTX) contracts.Repository         { return fakeContracts{m.s} }
func (m *fakeRepoManager) LineItems(dbx.DBTX) lineitems.Repository         { return fakeLineItems{m.s} }
func (m *fakeRepoManager) PaymentStages(dbx.DBTX) paymentstages.Repository { return fakeStages{m.s} }
func (m *fakeRepoManager) Signatures(dbx.DBTX) signatures.Repository       { return fakeSignatures{m.s} }
func (m *fakeRepoManager) Terms(dbx.DBTX) terms.Repository                 { return fakeTerms{m.s} }
func (m *fakeRepoManager) Acceptances(dbx.DBTX) acceptances.Repository     { return fakeAcceptances{m.s} }
func (m *fakeRepoManager) AccessTokens(dbx.DBTX) accesstokens.Repository   { return fakeTokens{m.s} }
func (m *fakeRepoManager) Activity(dbx.DBTX) activity.Repository           { return fakeActivity{m.s} }

type fakeContracts struct{ s *memStore }

func (f fakeContracts) Get(_ context.Context, id int64) (*models.Contract, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	c, ok := f.s.contracts[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *c
	return &cp, nil
}

func (f fakeContracts) GetForUpdate(ctx context.Context, id int64) (*models.Contract, error) {
	return f.Get(ctx, id)
}

func (f fakeContracts) MarkSigned(_ context.Context, id int64) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return false, f.s.err
	}
	c := f.s.contracts[id]
	if f.s.markSignedLoses || c == nil || (c.Status != models.StatusPending && c.Status != models.StatusOverdue) {
		return false, nil
	}
	c.Status = models.StatusSigned
	return true, nil
}

func (f fakeContracts) SetStatus(_ context.Context, id int64, from, to models.Status) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return false, f.s.err
	}
	c := f.s.contracts[id]
	if c == nil || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (f fakeContracts) MarkOverdue(context.Context, time.Time) (int64, error) {
	if f.s.err != nil {
		return 0, f.s.err
	}
	return f.s.overdue, nil
}

func (f fakeContracts) ArchiveCompleted(_ context.Context, cutoff time.Time) (int64, error) {
	if f.s.err != nil {
		return 0, f.s.err
	}
	f.s.sweepCutoff = cutoff
	return f.s.archived, nil
}

type fakeLineItems struct{ s *memStore }

func (f fakeLineItems) ListByContract(_ context.Context, id int64) ([]*models.LineItem, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	out := []*models.LineItem{}
	for _, li := range f.s.items[id] {
		cp := *li
		out = append(out, &cp)
	}
	return out, nil
}

type fakeStages struct{ s *memStore }

func (f fakeStages) List(_ context.Context, id int64) ([]models.Stage, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	return append([]models.Stage(nil), f.s.stages[id]...), nil
}

func (f fakeStages) Replace(_ context.Context, id int64, stages []models.Stage) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return f.s.err
	}
	f.s.stages[id] = append([]models.Stage(nil), stages...)
	return nil
}

type fakeSignatures struct{ s *memStore }

func (f fakeSignatures) Create(_ context.Context, sig *models.Signature) (*models.Signature, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	if _, ok := f.s.signatures[sig.ContractID]; ok {
		return nil, common.ErrAlreadySigned
	}
	f.s.nextID++
	cp := *sig
	cp.ID = f.s.nextID
	cp.SignedAt = fixedNow
	f.s.signatures[sig.ContractID] = &cp
	out := cp
	return &out, nil
}

func (f fakeSignatures) GetByContract(_ context.Context, id int64) (*models.Signature, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	sig, ok := f.s.signatures[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *sig
	return &cp, nil
}

type fakeTerms struct{ s *memStore }

func (f fakeTerms) Current(context.Context) (*models.TermsVersion, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	if len(f.s.terms) == 0 {
		return nil, common.ErrorNotFound
	}
	sorted := append([]*models.TermsVersion(nil), f.s.terms...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].IsActive != sorted[j].IsActive {
			return sorted[i].IsActive
		}
		return sorted[i].ID > sorted[j].ID
	})
	cp := *sorted[0]
	return &cp, nil
}

func (f fakeTerms) Get(_ context.Context, id int64) (*models.TermsVersion, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	for _, tv := range f.s.terms {
		if tv.ID == id {
			cp := *tv
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f fakeTerms) CountVersionsWithPrefix(_ context.Context, prefix string) (int, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return 0, f.s.err
	}
	n := 0
	for _, tv := range f.s.terms {
		if strings.HasPrefix(tv.Version, prefix) {
			n++
		}
	}
	return n, nil
}

func (f fakeTerms) Create(_ context.Context, tv *models.TermsVersion) (*models.TermsVersion, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	f.s.nextID++
	cp := *tv
	cp.ID = f.s.nextID
	cp.IsActive = false
	cp.CreatedAt = fixedNow
	f.s.terms = append(f.s.terms, &cp)
	out := cp
	return &out, nil
}

func (f fakeTerms) Lock(context.Context) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return f.s.err
	}
	f.s.termsOps = append(f.s.termsOps, "lock")
	return nil
}

func (f fakeTerms) DeactivateAll(context.Context) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return f.s.err
	}
	f.s.termsOps = append(f.s.termsOps, "deactivate")
	for _, tv := range f.s.terms {
		tv.IsActive = false
	}
	return nil
}

func (f fakeTerms) Activate(_ context.Context, id int64) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return f.s.err
	}
	for _, tv := range f.s.terms {
		if tv.ID == id {
			tv.IsActive = true
			f.s.termsOps = append(f.s.termsOps, "activate")
			return nil
		}
	}
	return common.ErrorNotFound
}

type fakeAcceptances struct{ s *memStore }

func (f fakeAcceptances) Accept(_ context.Context, a *models.TermsAcceptance) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return false, f.s.err
	}
	if _, ok := f.s.acceptances[a.ContractID]; ok {
		return false, nil
	}
	cp := *a
	f.s.acceptances[a.ContractID] = &cp
	return true, nil
}

func (f fakeAcceptances) Get(_ context.Context, id int64) (*models.TermsAcceptance, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	a, ok := f.s.acceptances[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *a
	return &cp, nil
}

type fakeTokens struct{ s *memStore }

func (f fakeTokens) Create(_ context.Context, rec *models.AccessTokenRecord) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return f.s.err
	}
	cp := *rec
	f.s.tokens[rec.Token] = &cp
	return nil
}

func (f fakeTokens) Find(_ context.Context, token string) (*models.AccessTokenRecord, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return nil, f.s.err
	}
	rec, ok := f.s.tokens[token]
	if !ok {
		return nil, common.ErrorNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f fakeTokens) MarkUsed(_ context.Context, token string, at time.Time) (bool, error) {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return false, f.s.err
	}
	rec, ok := f.s.tokens[token]
	if !ok || rec.Used {
		return false, nil
	}
	rec.Used = true
	rec.UsedAt = &at
	return true, nil
}

func (f fakeTokens) Cleanup(context.Context, time.Time, time.Duration) (int64, error) {
	if f.s.err != nil {
		return 0, f.s.err
	}
	return f.s.cleaned, nil
}

type fakeActivity struct{ s *memStore }

func (f fakeActivity) Log(_ context.Context, a *models.Activity) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	if f.s.err != nil {
		return f.s.err
	}
	f.s.activity = append(f.s.activity, a)
	return nil
}

// recordingNotifier captures sent mail.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

type sentMail struct{ to, subject, html, text string }

func (n *recordingNotifier) Send(_ context.Context, to, subject, html, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentMail{to, subject, html, text})
	return nil
}

// memObjectStore is an in-memory ObjectStore.
type memObjectStore struct {
	objects map[string][]byte
	putErr  error
}

func (m *memObjectStore) Put(_ context.Context, key string, body []byte, _ string) error {
	if m.putErr != nil {
		return m.putErr
	}
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = body
	return nil
}

func (m *memObjectStore) PresignGet(_ context.Context, key string) (string, error) {
	return "https://s3.example.com/" + key + "?X-Amz-Signature=abc", nil
}
