package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bank-reconciliation/internal/domain"
	"bank-reconciliation/internal/gateway"
	"bank-reconciliation/internal/usecase"
	mock_usecase "bank-reconciliation/internal/usecase/mocks"

	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var (
	usd = domain.Currency{Code: "USD", Decimals: 2}
	gol = domain.Currency{Code: "GOL", Decimals: 2}
	eur = domain.Currency{Code: "EUR", Decimals: 2}

	bankAccount     = domain.Account{ID: "101401", Code: "101401", Name: "Bank", Type: domain.AccountTypeLiquidity}
	suspenseAccount = domain.Account{ID: "101402", Code: "101402", Name: "Bank Suspense", Type: domain.AccountTypeSuspense}
	receivable      = domain.Account{ID: "121000", Code: "121000", Name: "Account Receivable", Type: domain.AccountTypeReceivable}
	payable         = domain.Account{ID: "211000", Code: "211000", Name: "Account Payable", Type: domain.AccountTypePayable}
	income          = domain.Account{ID: "400000", Code: "400000", Name: "Product Sales", Type: domain.AccountTypeIncome}
	taxAccount      = domain.Account{ID: "251000", Code: "251000", Name: "Tax Received", Type: domain.AccountTypeTax}
	discountLoss    = domain.Account{ID: "405000", Code: "405000", Name: "Cash Discount Loss", Type: domain.AccountTypeExpense}
	discountGain    = domain.Account{ID: "405100", Code: "405100", Name: "Cash Discount Gain", Type: domain.AccountTypeIncome}

	company = domain.Company{
		ID:                      "main",
		Name:                    "My Company",
		Currency:                usd,
		EarlyPaymentLossAccount: discountLoss,
		EarlyPaymentGainAccount: discountGain,
	}
	bankJournal = domain.Journal{
		ID:               "bank",
		Name:             "Bank",
		LiquidityAccount: bankAccount,
		SuspenseAccount:  suspenseAccount,
		Company:          company,
	}
	azure = &domain.Partner{ID: "azure", Name: "Azure Interior", ReceivableAccount: receivable, PayableAccount: payable}

	statementDate = time.Date(2019, 1, 15, 0, 0, 0, 0, time.UTC)

	tax21 = domain.Tax{
		ID:           "tax21",
		Name:         "21%",
		AmountType:   domain.TaxAmountPercent,
		Amount:       decimal.NewFromInt(21),
		Use:          domain.TaxUseSale,
		PriceInclude: true,
		Account:      taxAccount,
	}
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.True(t, d(want).Equal(got), append([]interface{}{"want %s, got %s", want, got.String()}, msgAndArgs...)...)
}

// assertBalanced checks that the lines sum to zero in company currency.
func assertBalanced(t *testing.T, s *usecase.Session) {
	t.Helper()
	assert.True(t, s.WorkingSet().TotalBalance().IsZero(), "working set does not balance: %s", s.WorkingSet().TotalBalance())
}

// foreignTransaction is 1200 USD received for 6000 GOL on a USD bank journal.
func foreignTransaction() domain.Transaction {
	return domain.Transaction{
		ID:              "st-1",
		PaymentRef:      "INV/2019/0001 payment",
		Date:            statementDate,
		Amount:          d("1200"),
		AmountCurrency:  d("6000"),
		ForeignCurrency: &gol,
		Journal:         bankJournal,
	}
}

func companyTransaction(amount string) domain.Transaction {
	return domain.Transaction{
		ID:         "st-2",
		PaymentRef: "Bank fees",
		Date:       statementDate,
		Amount:     d(amount),
		Journal:    bankJournal,
	}
}

// golInvoice is an open customer invoice booked at 3 GOL per USD.
func golInvoice(id, amount, balance string) domain.SourceEntry {
	return domain.SourceEntry{
		ID:                     id,
		Name:                   id,
		Partner:                azure,
		Account:                receivable,
		Currency:               gol,
		AmountCurrency:         d(amount),
		Balance:                d(balance),
		AmountResidualCurrency: d(amount),
		AmountResidual:         d(balance),
		Date:                   statementDate.AddDate(0, -1, 0),
	}
}

func usdInvoice(id, amount string) domain.SourceEntry {
	return domain.SourceEntry{
		ID:                     id,
		Name:                   id,
		Partner:                azure,
		Account:                receivable,
		Currency:               usd,
		AmountCurrency:         d(amount),
		Balance:                d(amount),
		AmountResidualCurrency: d(amount),
		AmountResidual:         d(amount),
		Date:                   statementDate.AddDate(0, -1, 0),
	}
}

type fixture struct {
	rates   *mock_usecase.MockRateProvider
	entries *mock_usecase.MockSourceEntryRepository
	matcher *mock_usecase.MockCandidateMatcher
	rules   *mock_usecase.MockRuleRepository
	ledger  *mock_usecase.MockLedgerWriter
	deps    usecase.Dependencies
	uc      *usecase.ReconciliationUseCase
}

// newFixture wires mocked repositories around the real evaluators. The
// source entry repository serves entries by id.
func newFixture(t *testing.T, entries ...domain.SourceEntry) *fixture {
	ctrl := gomock.NewController(t)

	f := &fixture{
		rates:   mock_usecase.NewMockRateProvider(ctrl),
		entries: mock_usecase.NewMockSourceEntryRepository(ctrl),
		matcher: mock_usecase.NewMockCandidateMatcher(ctrl),
		rules:   mock_usecase.NewMockRuleRepository(ctrl),
		ledger:  mock_usecase.NewMockLedgerWriter(ctrl),
	}

	byID := make(map[string]domain.SourceEntry, len(entries))
	for _, e := range entries {
		byID[e.ID] = e
	}
	f.entries.EXPECT().FetchSourceEntry(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, id string) (domain.SourceEntry, error) {
			e, ok := byID[id]
			if !ok {
				return domain.SourceEntry{}, domain.NewDomainError(domain.ErrorNotFound, "id", id)
			}
			return e, nil
		}).AnyTimes()

	f.deps = usecase.Dependencies{
		Rates:        f.rates,
		Entries:      f.entries,
		Matcher:      f.matcher,
		Rules:        f.rules,
		Taxes:        gateway.NewTaxEngine(),
		EarlyPayment: gateway.NewEarlyPaymentSplitter(),
		Models:       gateway.NewWriteOffEvaluator(),
		Ledger:       f.ledger,
	}
	f.uc = usecase.NewReconciliationUseCase(f.deps, usecase.WithLogger(zap.NewNop()))
	return f
}

func (f *fixture) open(t *testing.T, tx domain.Transaction) *usecase.Session {
	t.Helper()
	s, err := f.uc.Open(context.Background(), tx)
	require.NoError(t, err)
	return s
}

func TestReconciliationUseCase_Open(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, foreignTransaction())

	ws := s.WorkingSet()
	require.Len(t, ws.Lines, 2)

	liquidity := ws.Lines[0]
	assert.Equal(t, domain.RoleLiquidity, liquidity.Role)
	assert.Equal(t, bankAccount, liquidity.Account)
	assert.True(t, liquidity.Currency.Is(usd))
	assertDecimal(t, "1200", liquidity.AmountInCurrency)
	assertDecimal(t, "1200", liquidity.Balance)

	open := ws.Lines[1]
	assert.Equal(t, domain.RoleAutoBalance, open.Role)
	assert.Equal(t, suspenseAccount, open.Account)
	assert.Equal(t, "INV/2019/0001 payment", open.Name)
	assert.True(t, open.Currency.Is(gol))
	assertDecimal(t, "-6000", open.AmountInCurrency)
	assertDecimal(t, "-1200", open.Balance)

	assert.Equal(t, domain.StateInvalid, s.State())
	assert.True(t, s.Snapshot().DisplayFlags.ShowForeignCurrency)
	assertBalanced(t, s)
}

func TestReconciliationUseCase_Open_Reconciled(t *testing.T) {
	f := newFixture(t)
	tx := companyTransaction("100")
	tx.IsReconciled = true
	tx.PostedEntry = &domain.PostedEntry{
		Ref: "BNK/1",
		Items: []domain.JournalItem{
			{Name: "Bank fees", Role: domain.RoleLiquidity, Account: bankAccount, Currency: usd, AmountInCurrency: d("100"), Balance: d("100")},
			{Name: "Open balance", Role: domain.RoleAutoBalance, Account: receivable, Currency: usd, AmountInCurrency: d("-100"), Balance: d("-100")},
		},
	}

	s := f.open(t, tx)
	snap := s.Snapshot()
	require.Len(t, snap.Lines, 2)
	assert.Equal(t, domain.RoleManual, snap.Lines[1].Role)
	assert.Equal(t, domain.StateReconciled, snap.State)
	assert.True(t, snap.DisplayFlags.ReadOnly)

	ctx := context.Background()
	assert.ErrorIs(t, s.AddSourceEntries(ctx, []domain.SourceEntry{usdInvoice("INV/1", "100")}, nil, false), domain.ErrReadOnly)
	assert.ErrorIs(t, s.RemoveLine(ctx, 1), domain.ErrReadOnly)
	assert.ErrorIs(t, s.EditLine(ctx, 1, usecase.FieldName, "x"), domain.ErrReadOnly)
	_, err := s.TriggerMatchingRules(ctx)
	assert.ErrorIs(t, err, domain.ErrReadOnly)
	_, err = s.Commit(ctx)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSession_AddSourceEntries_ForeignCurrency(t *testing.T) {
	invoice := golInvoice("INV/2019/0001", "6000", "2000")
	f := newFixture(t, invoice)
	s := f.open(t, foreignTransaction())

	err := s.AddSourceEntries(context.Background(), []domain.SourceEntry{invoice}, nil, false)
	require.NoError(t, err)

	ws := s.WorkingSet()
	require.Len(t, ws.Lines, 2)
	line := ws.FirstWithRole(domain.RoleNewSourceEntry)
	require.NotNil(t, line)
	assert.Equal(t, "INV/2019/0001", line.SourceEntryRef)
	assert.True(t, line.Currency.Is(gol))
	// the entry is settled at the bank's rate, not its booking rate
	assertDecimal(t, "-6000", line.AmountInCurrency)
	assertDecimal(t, "-1200", line.Balance)
	assert.Nil(t, ws.FirstWithRole(domain.RoleAutoBalance))
	assert.Equal(t, domain.StateValid, s.State())
	assertBalanced(t, s)
}

func TestSession_AddSourceEntries_CompanyCurrencyEntry(t *testing.T) {
	invoice := usdInvoice("INV/2019/0002", "1200")
	f := newFixture(t, invoice)
	s := f.open(t, foreignTransaction())

	require.NoError(t, s.AddSourceEntries(context.Background(), []domain.SourceEntry{invoice}, nil, false))

	line := s.WorkingSet().FirstWithRole(domain.RoleNewSourceEntry)
	require.NotNil(t, line)
	assert.True(t, line.Currency.Is(gol))
	assertDecimal(t, "-6000", line.AmountInCurrency)
	assertDecimal(t, "-1200", line.Balance)
	assert.Nil(t, s.WorkingSet().FirstWithRole(domain.RoleAutoBalance))
}

func TestSession_AddSourceEntries_ConvertsThroughRateTable(t *testing.T) {
	invoice := domain.SourceEntry{
		ID:                     "INV/EUR/1",
		Name:                   "INV/EUR/1",
		Account:                receivable,
		Currency:               eur,
		AmountCurrency:         d("200"),
		Balance:                d("100"),
		AmountResidualCurrency: d("200"),
		AmountResidual:         d("100"),
	}
	f := newFixture(t, invoice)
	f.rates.EXPECT().RateAt(gomock.Any(), "EUR", statementDate).Return(d("2.5"), nil)
	f.rates.EXPECT().RateAt(gomock.Any(), "USD", statementDate).Return(decimal.NewFromInt(1), nil)

	s := f.open(t, companyTransaction("80"))
	require.NoError(t, s.AddSourceEntries(context.Background(), []domain.SourceEntry{invoice}, nil, false))

	line := s.WorkingSet().FirstWithRole(domain.RoleNewSourceEntry)
	require.NotNil(t, line)
	assert.True(t, line.Currency.Is(eur))
	assertDecimal(t, "-200", line.AmountInCurrency)
	assertDecimal(t, "-80", line.Balance)
	assertBalanced(t, s)
}

func TestSession_AddSourceEntries_PartialMatch(t *testing.T) {
	tests := []struct {
		name         string
		amount       string
		balance      string
		allowPartial bool
		wantAmount   string
		wantBalance  string
		wantPartial  bool
		wantOpen     string // auto-balance amount in GOL, empty when absent
	}{
		{
			name:         "larger entry reduced to the transaction amount",
			amount:       "9000",
			balance:      "3000",
			allowPartial: true,
			wantAmount:   "-6000",
			wantBalance:  "-1200",
			wantPartial:  true,
		},
		{
			name:         "larger entry kept full without partial matching",
			amount:       "9000",
			balance:      "3000",
			allowPartial: false,
			wantAmount:   "-9000",
			wantBalance:  "-1800",
			wantOpen:     "3000",
		},
		{
			name:         "exact entry is not partial",
			amount:       "6000",
			balance:      "2000",
			allowPartial: true,
			wantAmount:   "-6000",
			wantBalance:  "-1200",
		},
		{
			name:         "smaller entry leaves an open balance",
			amount:       "3000",
			balance:      "1000",
			allowPartial: true,
			wantAmount:   "-3000",
			wantBalance:  "-600",
			wantOpen:     "-3000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			invoice := golInvoice("INV/2019/0003", tt.amount, tt.balance)
			f := newFixture(t, invoice)
			s := f.open(t, foreignTransaction())

			require.NoError(t, s.AddSourceEntries(context.Background(), []domain.SourceEntry{invoice}, nil, tt.allowPartial))

			ws := s.WorkingSet()
			line := ws.FirstWithRole(domain.RoleNewSourceEntry)
			require.NotNil(t, line)
			assertDecimal(t, tt.wantAmount, line.AmountInCurrency)
			assertDecimal(t, tt.wantBalance, line.Balance)
			assert.Equal(t, tt.wantPartial, line.IsPartial())
			assert.Equal(t, tt.wantPartial, s.Snapshot().DisplayFlags.PartialMatched)

			auto := ws.FirstWithRole(domain.RoleAutoBalance)
			if tt.wantOpen == "" {
				assert.Nil(t, auto)
			} else {
				require.NotNil(t, auto)
				assertDecimal(t, tt.wantOpen, auto.AmountInCurrency)
				assert.Same(t, auto, ws.Lines[len(ws.Lines)-1], "auto-balance line must stay last")
			}
			assertBalanced(t, s)
		})
	}
}

func TestSession_AddSourceEntries_Rejections(t *testing.T) {
	invoice := golInvoice("INV/2019/0004", "6000", "2000")
	reconciled := golInvoice("INV/2019/0005", "100", "20")
	reconciled.Reconciled = true
	f := newFixture(t, invoice, reconciled)
	s := f.open(t, foreignTransaction())
	ctx := context.Background()

	require.NoError(t, s.AddSourceEntries(ctx, []domain.SourceEntry{invoice}, nil, false))
	before := s.Snapshot()

	err := s.AddSourceEntries(ctx, []domain.SourceEntry{invoice}, nil, false)
	assert.ErrorIs(t, err, domain.ErrDuplicateSourceEntry)
	assert.Equal(t, before, s.Snapshot())

	err = s.AddSourceEntries(ctx, []domain.SourceEntry{reconciled}, nil, false)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Equal(t, before, s.Snapshot())
}

func TestSession_AddSourceEntries_EarlyPayment(t *testing.T) {
	invoice := usdInvoice("INV/2019/0006", "1000")
	invoice.EarlyPayment = &domain.EarlyPaymentTerms{
		DiscountDate:             statementDate.AddDate(0, 0, 5),
		DiscountedAmountCurrency: d("950"),
	}
	f := newFixture(t, invoice)
	s := f.open(t, companyTransaction("950"))
	ctx := context.Background()

	require.NoError(t, s.AddSourceEntries(ctx, []domain.SourceEntry{invoice}, nil, true))

	ws := s.WorkingSet()
	source := ws.FirstWithRole(domain.RoleNewSourceEntry)
	require.NotNil(t, source)
	assertDecimal(t, "-1000", source.AmountInCurrency)

	discounts := ws.LinesWithRole(domain.RoleEarlyPayment)
	require.Len(t, discounts, 1)
	assert.Equal(t, discountLoss, discounts[0].Account)
	assertDecimal(t, "50", discounts[0].AmountInCurrency)
	assertDecimal(t, "50", discounts[0].Balance)
	assert.Nil(t, ws.FirstWithRole(domain.RoleAutoBalance))
	assert.True(t, s.Snapshot().DisplayFlags.EarlyPaymentApplied)
	assertBalanced(t, s)

	// dropping the invoice drops its discount
	require.NoError(t, s.RemoveLine(ctx, source.Index))
	ws = s.WorkingSet()
	assert.Empty(t, ws.LinesWithRole(domain.RoleEarlyPayment))
	auto := ws.FirstWithRole(domain.RoleAutoBalance)
	require.NotNil(t, auto)
	assertDecimal(t, "-950", auto.Balance)
	assertBalanced(t, s)
}

func TestSession_AddSourceEntries_EarlyPaymentExpired(t *testing.T) {
	invoice := usdInvoice("INV/2019/0007", "1000")
	invoice.EarlyPayment = &domain.EarlyPaymentTerms{
		DiscountDate:             statementDate.AddDate(0, 0, -1),
		DiscountedAmountCurrency: d("950"),
	}
	f := newFixture(t, invoice)
	s := f.open(t, companyTransaction("950"))

	require.NoError(t, s.AddSourceEntries(context.Background(), []domain.SourceEntry{invoice}, nil, true))

	ws := s.WorkingSet()
	assert.Empty(t, ws.LinesWithRole(domain.RoleEarlyPayment))
	source := ws.FirstWithRole(domain.RoleNewSourceEntry)
	require.NotNil(t, source)
	assertDecimal(t, "-950", source.AmountInCurrency)
	assert.True(t, source.IsPartial())
	assertBalanced(t, s)
}

func TestSession_AddSourceEntries_EarlyPaymentMixedTerms(t *testing.T) {
	discounted := usdInvoice("INV/2019/0017", "1000")
	discounted.EarlyPayment = &domain.EarlyPaymentTerms{
		DiscountDate:             statementDate.AddDate(0, 0, 5),
		DiscountedAmountCurrency: d("950"),
	}
	plain := usdInvoice("INV/2019/0018", "500")
	entries := []domain.SourceEntry{discounted, plain}

	t.Run("discount covers the open amount", func(t *testing.T) {
		f := newFixture(t, entries...)
		s := f.open(t, companyTransaction("1450"))
		require.NoError(t, s.AddSourceEntries(context.Background(), entries, nil, true))

		ws := s.WorkingSet()
		sources := ws.LinesWithRole(domain.RoleNewSourceEntry)
		require.Len(t, sources, 2)
		assertDecimal(t, "-1000", sources[0].AmountInCurrency)
		assertDecimal(t, "-500", sources[1].AmountInCurrency)

		discounts := ws.LinesWithRole(domain.RoleEarlyPayment)
		require.Len(t, discounts, 1)
		assert.Equal(t, discountLoss, discounts[0].Account)
		assertDecimal(t, "50", discounts[0].Balance)
		assert.Nil(t, ws.FirstWithRole(domain.RoleAutoBalance))
		assertBalanced(t, s)
	})

	t.Run("falls back to a partial match", func(t *testing.T) {
		f := newFixture(t, entries...)
		s := f.open(t, companyTransaction("1400"))
		require.NoError(t, s.AddSourceEntries(context.Background(), entries, nil, true))

		ws := s.WorkingSet()
		assert.Empty(t, ws.LinesWithRole(domain.RoleEarlyPayment))
		sources := ws.LinesWithRole(domain.RoleNewSourceEntry)
		require.Len(t, sources, 2)
		assertDecimal(t, "-1000", sources[0].AmountInCurrency)
		assertDecimal(t, "-400", sources[1].AmountInCurrency)
		assert.True(t, sources[1].IsPartial())
		assert.Nil(t, ws.FirstWithRole(domain.RoleAutoBalance))
		assertBalanced(t, s)
	})
}

func TestSession_RemoveLine(t *testing.T) {
	invoice := golInvoice("INV/2019/0008", "9000", "3000")
	f := newFixture(t, invoice)
	s := f.open(t, foreignTransaction())
	ctx := context.Background()

	require.NoError(t, s.AddSourceEntries(ctx, []domain.SourceEntry{invoice}, nil, true))

	assert.ErrorIs(t, s.RemoveLine(ctx, 0), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.RemoveLine(ctx, 99), domain.ErrLineNotFound)

	source := s.WorkingSet().FirstWithRole(domain.RoleNewSourceEntry)
	require.NotNil(t, source)
	require.NoError(t, s.RemoveLine(ctx, source.Index))

	ws := s.WorkingSet()
	require.Len(t, ws.Lines, 2)
	auto := ws.FirstWithRole(domain.RoleAutoBalance)
	require.NotNil(t, auto)
	assertDecimal(t, "-6000", auto.AmountInCurrency)
	assert.Greater(t, auto.Index, source.Index, "indexes are never reused")
	assertBalanced(t, s)
}

func TestSession_EditLine_ClaimsAutoBalance(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, foreignTransaction())
	ctx := context.Background()

	auto := s.WorkingSet().FirstWithRole(domain.RoleAutoBalance)
	require.NotNil(t, auto)
	require.Equal(t, domain.StateInvalid, s.State())

	require.NoError(t, s.EditLine(ctx, auto.Index, usecase.FieldAccount, income))

	ws := s.WorkingSet()
	require.Len(t, ws.Lines, 2)
	claimed := ws.Line(auto.Index)
	require.NotNil(t, claimed)
	assert.Equal(t, domain.RoleManual, claimed.Role)
	assert.True(t, claimed.ForcePriceIncluded)
	assert.Equal(t, income, claimed.Account)
	assert.Nil(t, ws.FirstWithRole(domain.RoleAutoBalance))
	assert.Equal(t, domain.StateValid, s.State())

	snap := s.Snapshot()
	require.NotNil(t, snap.EditedIndex)
	assert.Equal(t, auto.Index, *snap.EditedIndex)
	assertBalanced(t, s)
}

func TestSession_EditLine_CosmeticEditKeepsAutoBalance(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, foreignTransaction())
	ctx := context.Background()

	auto := s.WorkingSet().FirstWithRole(domain.RoleAutoBalance)
	require.NotNil(t, auto)

	distribution := map[string]decimal.Decimal{"project-a": d("100")}
	require.NoError(t, s.EditLine(ctx, auto.Index, usecase.FieldName, "Open balance"))
	require.NoError(t, s.EditLine(ctx, auto.Index, usecase.FieldAnalyticDistribution, distribution))

	line := s.WorkingSet().Line(auto.Index)
	require.NotNil(t, line)
	assert.Equal(t, domain.RoleAutoBalance, line.Role)
	assert.False(t, line.ForcePriceIncluded)
	assert.Equal(t, distribution, line.AnalyticDistribution)
	assert.Equal(t, domain.StateInvalid, s.State())
	assertBalanced(t, s)
}

func TestSession_EditLine_ClampsSourceAmount(t *testing.T) {
	invoice := golInvoice("INV/2019/0009", "9000", "3000")
	f := newFixture(t, invoice)
	s := f.open(t, foreignTransaction())
	ctx := context.Background()

	require.NoError(t, s.AddSourceEntries(ctx, []domain.SourceEntry{invoice}, nil, true))
	source := s.WorkingSet().FirstWithRole(domain.RoleNewSourceEntry)
	require.NotNil(t, source)

	tests := []struct {
		name        string
		field       usecase.LineField
		value       string
		wantAmount  string
		wantBalance string
	}{
		{
			name:        "amount over the residual",
			field:       usecase.FieldAmountInCurrency,
			value:       "-20000",
			wantAmount:  "-9000",
			wantBalance: "-1800",
		},
		{
			name:        "amount of opposite sign",
			field:       usecase.FieldAmountInCurrency,
			value:       "500",
			wantAmount:  "-9000",
			wantBalance: "-1800",
		},
		{
			name:        "amount within the residual",
			field:       usecase.FieldAmountInCurrency,
			value:       "-4500",
			wantAmount:  "-4500",
			wantBalance: "-900",
		},
		{
			name:        "balance over the residual",
			field:       usecase.FieldBalance,
			value:       "-5000",
			wantAmount:  "-9000",
			wantBalance: "-1800",
		},
		{
			name:        "balance within the residual",
			field:       usecase.FieldBalance,
			value:       "-600",
			wantAmount:  "-3000",
			wantBalance: "-600",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, s.EditLine(ctx, source.Index, tt.field, d(tt.value)))

			line := s.WorkingSet().Line(source.Index)
			require.NotNil(t, line)
			assertDecimal(t, tt.wantAmount, line.AmountInCurrency)
			assertDecimal(t, tt.wantBalance, line.Balance)
			assert.True(t, line.ManuallyModified)
			assertBalanced(t, s)
		})
	}
}

func TestSession_EditLine_ClampsCompanyCurrencyBalance(t *testing.T) {
	invoice := usdInvoice("INV/2019/0016", "1000")
	f := newFixture(t, invoice)
	s := f.open(t, companyTransaction("600"))
	ctx := context.Background()

	require.NoError(t, s.AddSourceEntries(ctx, []domain.SourceEntry{invoice}, nil, true))
	source := s.WorkingSet().FirstWithRole(domain.RoleNewSourceEntry)
	require.NotNil(t, source)
	assertDecimal(t, "-600", source.Balance)

	for _, value := range []string{"-5000", "300"} {
		require.NoError(t, s.EditLine(ctx, source.Index, usecase.FieldBalance, d(value)))

		line := s.WorkingSet().Line(source.Index)
		require.NotNil(t, line)
		assertDecimal(t, "-1000", line.AmountInCurrency, value)
		assertDecimal(t, "-1000", line.Balance, value)
		assert.True(t, line.ManuallyModified)
		assertBalanced(t, s)
	}
}

func TestSession_EditLine_Rejections(t *testing.T) {
	invoice := golInvoice("INV/2019/0010", "6000", "2000")
	f := newFixture(t, invoice)
	s := f.open(t, foreignTransaction())
	ctx := context.Background()
	require.NoError(t, s.AddSourceEntries(ctx, []domain.SourceEntry{invoice}, nil, false))
	source := s.WorkingSet().FirstWithRole(domain.RoleNewSourceEntry)
	require.NotNil(t, source)

	tests := []struct {
		name    string
		index   int
		field   usecase.LineField
		value   any
		wantErr error
	}{
		{name: "unknown line", index: 99, field: usecase.FieldName, value: "x", wantErr: domain.ErrLineNotFound},
		{name: "liquidity amount", index: 0, field: usecase.FieldAmountInCurrency, value: d("1"), wantErr: domain.ErrInvalidInput},
		{name: "wrong value type", index: source.Index, field: usecase.FieldAmountInCurrency, value: "12", wantErr: domain.ErrInvalidInput},
		{name: "source currency", index: source.Index, field: usecase.FieldCurrency, value: usd, wantErr: domain.ErrInvalidInput},
		{name: "source taxes", index: source.Index, field: usecase.FieldTaxes, value: []domain.Tax{tax21}, wantErr: domain.ErrInvalidInput},
		{name: "unknown field", index: source.Index, field: usecase.LineField("color"), value: "red", wantErr: domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := s.Snapshot()
			err := s.EditLine(ctx, tt.index, tt.field, tt.value)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Equal(t, before, s.Snapshot())
		})
	}
}

func TestSession_EditLine_LiquidityPartner(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, foreignTransaction())

	require.NoError(t, s.EditLine(context.Background(), 0, usecase.FieldPartner, azure))

	ws := s.WorkingSet()
	assert.Equal(t, azure, ws.Partner)
	auto := ws.FirstWithRole(domain.RoleAutoBalance)
	require.NotNil(t, auto)
	assert.Equal(t, receivable, auto.Account)
	assert.Equal(t, "Open balance", auto.Name)
	assert.Equal(t, domain.StateValid, s.State())
}

func feesRule() domain.ReconcileModel {
	return domain.ReconcileModel{
		ID:       "fees",
		Name:     "Bank fees",
		RuleType: domain.RuleTypeWriteOffButton,
		Lines: []domain.ReconcileModelLine{{
			Label:      "Fees",
			Account:    income,
			AmountType: domain.RuleAmountPercentage,
			Amount:     decimal.NewFromInt(100),
			Taxes:      []domain.Tax{tax21},
		}},
	}
}

func TestSession_ApplyRule_PriceIncludedTax(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, companyTransaction("1000"))
	ctx := context.Background()

	result, err := s.ApplyRule(ctx, feesRule())
	require.NoError(t, err)
	require.Len(t, result.CreatedIndexes, 1)

	ws := s.WorkingSet()
	require.Len(t, ws.Lines, 3)
	base := ws.Line(result.CreatedIndexes[0])
	require.NotNil(t, base)
	assertDecimal(t, "-826.45", base.AmountInCurrency)
	assertDecimal(t, "-1000", base.TaxBaseAmount)
	assert.Equal(t, "fees", base.RuleRef)

	taxLine := ws.FirstWithRole(domain.RoleTaxLine)
	require.NotNil(t, taxLine)
	assertDecimal(t, "-173.55", taxLine.AmountInCurrency)
	assert.Equal(t, taxAccount, taxLine.Account)
	require.NotNil(t, taxLine.TaxRepartition)
	assert.Equal(t, "tax21", taxLine.TaxRepartition.TaxID)
	assert.Nil(t, ws.FirstWithRole(domain.RoleAutoBalance))
	assert.True(t, s.Snapshot().DisplayFlags.ShowTaxes)
	assertBalanced(t, s)

	// a second tax pass leaves the lines as they are
	require.NoError(t, s.EditLine(ctx, base.Index, usecase.FieldName, "Monthly fees"))
	again := s.WorkingSet()
	require.Len(t, again.Lines, 3)
	assertDecimal(t, "-826.45", again.Line(base.Index).AmountInCurrency)
	againTax := again.FirstWithRole(domain.RoleTaxLine)
	require.NotNil(t, againTax)
	assert.Equal(t, taxLine.Index, againTax.Index)
	assertDecimal(t, "-173.55", againTax.AmountInCurrency)

	// clearing the taxes restores the typed amount
	require.NoError(t, s.EditLine(ctx, base.Index, usecase.FieldTaxes, []domain.Tax{}))
	cleared := s.WorkingSet()
	require.Len(t, cleared.Lines, 2)
	assertDecimal(t, "-1000", cleared.Line(base.Index).AmountInCurrency)
	assert.Nil(t, cleared.FirstWithRole(domain.RoleTaxLine))
	assertBalanced(t, s)
}

func TestSession_ApplyRule_ReplacesOtherRuleLines(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, companyTransaction("1000"))
	ctx := context.Background()

	_, err := s.ApplyRule(ctx, feesRule())
	require.NoError(t, err)

	other := domain.ReconcileModel{
		ID:       "flat",
		Name:     "Flat fee",
		RuleType: domain.RuleTypeWriteOffButton,
		ToCheck:  true,
		Lines: []domain.ReconcileModelLine{{
			Account:    income,
			AmountType: domain.RuleAmountFixed,
			Amount:     decimal.NewFromInt(100),
		}},
	}
	result, err := s.ApplyRule(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, 1, result.RemovedLines)

	ws := s.WorkingSet()
	assert.Nil(t, ws.FirstWithRole(domain.RoleTaxLine))
	manual := ws.LinesWithRole(domain.RoleManual)
	require.Len(t, manual, 1)
	assert.Equal(t, "flat", manual[0].RuleRef)
	assert.Equal(t, "Flat fee", manual[0].Name)
	assertDecimal(t, "-100", manual[0].AmountInCurrency)

	auto := ws.FirstWithRole(domain.RoleAutoBalance)
	require.NotNil(t, auto)
	assertDecimal(t, "-900", auto.AmountInCurrency)
	assert.True(t, ws.ToCheck)
	assertBalanced(t, s)
}

func TestSession_ApplyRule_RollsBackOnEvaluatorError(t *testing.T) {
	f := newFixture(t)
	models := mock_usecase.NewMockReconcileModelEvaluator(gomock.NewController(t))
	models.EXPECT().
		ApplyReconcileModel(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, errors.New("evaluator unavailable"))

	core, logs := observer.New(zapcore.WarnLevel)
	deps := f.deps
	deps.Models = models
	uc := usecase.NewReconciliationUseCase(deps, usecase.WithLogger(zap.New(core)))

	s, err := uc.Open(context.Background(), companyTransaction("1000"))
	require.NoError(t, err)
	before := s.Snapshot()

	_, err = s.ApplyRule(context.Background(), feesRule())
	assert.Error(t, err)
	assert.Equal(t, before, s.Snapshot())
	assert.Equal(t, 1, logs.FilterMessage("action rolled back").Len())
}

func TestSession_Commit(t *testing.T) {
	invoice := golInvoice("INV/2019/0011", "6000", "2000")
	f := newFixture(t, invoice)
	s := f.open(t, foreignTransaction())
	ctx := context.Background()
	require.NoError(t, s.AddSourceEntries(ctx, []domain.SourceEntry{invoice}, nil, false))

	var gotEntry domain.JournalEntry
	var gotLinks []domain.ReconcileLink
	f.ledger.EXPECT().PostEntry(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry domain.JournalEntry, links []domain.ReconcileLink) (domain.PostedEntry, error) {
			gotEntry, gotLinks = entry, links
			return domain.PostedEntry{Ref: "BNK/1", Items: entry.Items}, nil
		})

	posted, err := s.Commit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "BNK/1", posted.Ref)

	assert.Equal(t, "st-1", gotEntry.TransactionID)
	assert.Equal(t, "bank", gotEntry.JournalID)
	assert.Equal(t, azure, gotEntry.Partner)
	require.Len(t, gotEntry.Items, 2)
	assert.Equal(t, azure, gotEntry.Items[0].Partner, "liquidity item takes the shared partner")

	require.Len(t, gotLinks, 1)
	assert.Equal(t, 1, gotLinks[0].ItemPosition)
	assert.Equal(t, "INV/2019/0011", gotLinks[0].SourceEntryRef)
	assertDecimal(t, "-6000", gotLinks[0].AmountInCurrency)

	assert.Equal(t, domain.StateReconciled, s.State())
	assert.True(t, s.Snapshot().DisplayFlags.ReadOnly)
	assert.ErrorIs(t, s.Reset(ctx), domain.ErrReadOnly)
}

func TestSession_Commit_DisagreeingPartners(t *testing.T) {
	deco := &domain.Partner{ID: "deco", Name: "Deco Addict", ReceivableAccount: receivable, PayableAccount: payable}
	gemini := &domain.Partner{ID: "gemini", Name: "Gemini Furniture", ReceivableAccount: receivable, PayableAccount: payable}
	first := usdInvoice("INV/2019/0019", "600")
	first.Partner = deco
	second := usdInvoice("INV/2019/0020", "400")
	second.Partner = gemini

	f := newFixture(t, first, second)
	tx := companyTransaction("1000")
	tx.Partner = azure
	s := f.open(t, tx)
	ctx := context.Background()
	require.NoError(t, s.AddSourceEntries(ctx, []domain.SourceEntry{first, second}, nil, false))
	require.Equal(t, domain.StateValid, s.State())

	var gotEntry domain.JournalEntry
	f.ledger.EXPECT().PostEntry(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry domain.JournalEntry, _ []domain.ReconcileLink) (domain.PostedEntry, error) {
			gotEntry = entry
			return domain.PostedEntry{Ref: "BNK/2", Items: entry.Items}, nil
		})

	_, err := s.Commit(ctx)
	require.NoError(t, err)

	assert.Nil(t, gotEntry.Partner)
	require.Len(t, gotEntry.Items, 3)
	assert.Nil(t, gotEntry.Items[0].Partner, "liquidity item has no partner")
	assert.Nil(t, s.WorkingSet().Transaction.Partner)
}

func TestSession_Commit_InvalidState(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, foreignTransaction())

	_, err := s.Commit(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestSession_Commit_LedgerFailure(t *testing.T) {
	invoice := golInvoice("INV/2019/0012", "6000", "2000")
	f := newFixture(t, invoice)
	s := f.open(t, foreignTransaction())
	ctx := context.Background()
	require.NoError(t, s.AddSourceEntries(ctx, []domain.SourceEntry{invoice}, nil, false))

	f.ledger.EXPECT().PostEntry(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(domain.PostedEntry{}, errors.New("database is locked"))

	before := s.Snapshot()
	_, err := s.Commit(ctx)
	assert.Error(t, err)
	assert.Equal(t, domain.StateValid, s.State())
	assert.Equal(t, before, s.Snapshot())
}

func TestSession_TriggerMatchingRules(t *testing.T) {
	invoice := golInvoice("INV/2019/0013", "6000", "2000")

	t.Run("invoice matching with auto reconcile", func(t *testing.T) {
		f := newFixture(t, invoice)
		rule := &domain.ReconcileModel{ID: "match", RuleType: domain.RuleTypeInvoiceMatching, AutoReconcile: true}
		f.matcher.EXPECT().FetchCandidateSourceEntries(gomock.Any(), gomock.Any()).
			Return(domain.MatchResult{Candidates: []domain.SourceEntry{invoice}, Rule: rule, AutoReconcile: true}, nil)
		f.ledger.EXPECT().PostEntry(gomock.Any(), gomock.Any(), gomock.Any()).
			Return(domain.PostedEntry{Ref: "BNK/2"}, nil)

		s := f.open(t, foreignTransaction())
		outcome, err := s.TriggerMatchingRules(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 1, outcome.AddedEntries)
		require.NotNil(t, outcome.Posted)
		assert.Equal(t, "BNK/2", outcome.Posted.Ref)
		assert.Equal(t, domain.StateReconciled, s.State())
	})

	t.Run("write-off suggestion without candidates", func(t *testing.T) {
		f := newFixture(t)
		rule := feesRule()
		rule.RuleType = domain.RuleTypeWriteOffSuggestion
		f.matcher.EXPECT().FetchCandidateSourceEntries(gomock.Any(), gomock.Any()).
			Return(domain.MatchResult{Rule: &rule}, nil)

		s := f.open(t, companyTransaction("1000"))
		outcome, err := s.TriggerMatchingRules(context.Background())
		require.NoError(t, err)
		require.NotNil(t, outcome.Applied)
		assert.Equal(t, "fees", outcome.Applied.RuleID)
		assert.Nil(t, outcome.Posted)
		assert.Equal(t, domain.StateValid, s.State())
	})

	t.Run("nothing matches", func(t *testing.T) {
		f := newFixture(t)
		f.matcher.EXPECT().FetchCandidateSourceEntries(gomock.Any(), gomock.Any()).
			Return(domain.MatchResult{}, nil)

		s := f.open(t, foreignTransaction())
		before := s.Snapshot()
		outcome, err := s.TriggerMatchingRules(context.Background())
		require.NoError(t, err)
		assert.Nil(t, outcome.Rule)
		assert.Equal(t, before, s.Snapshot())
	})
}

func TestSession_UpdateTransaction(t *testing.T) {
	f := newFixture(t)
	s := f.open(t, foreignTransaction())
	ctx := context.Background()

	tx := foreignTransaction()
	tx.Partner = azure
	require.NoError(t, s.UpdateTransaction(ctx, tx))
	auto := s.WorkingSet().FirstWithRole(domain.RoleAutoBalance)
	require.NotNil(t, auto)
	assert.Equal(t, receivable, auto.Account)
	assert.Equal(t, domain.StateValid, s.State())

	tx.Amount = d("1500")
	tx.AmountCurrency = d("7500")
	require.NoError(t, s.UpdateTransaction(ctx, tx))
	liquidity := s.WorkingSet().FirstWithRole(domain.RoleLiquidity)
	require.NotNil(t, liquidity)
	assertDecimal(t, "1500", liquidity.AmountInCurrency)
	assertBalanced(t, s)
}

func TestSession_RecomputeIsIdempotent(t *testing.T) {
	invoice := golInvoice("INV/2019/0021", "3000", "1000")
	f := newFixture(t, invoice)
	s := f.open(t, foreignTransaction())
	ctx := context.Background()
	require.NoError(t, s.AddSourceEntries(ctx, []domain.SourceEntry{invoice}, nil, false))

	auto := s.WorkingSet().FirstWithRole(domain.RoleAutoBalance)
	require.NotNil(t, auto)

	before := s.Snapshot()
	require.NoError(t, s.UpdateTransaction(ctx, s.WorkingSet().Transaction))
	assert.Equal(t, before, s.Snapshot())

	require.NoError(t, s.EditLine(ctx, auto.Index, usecase.FieldName, "x"))
	once := s.Snapshot()
	require.NoError(t, s.EditLine(ctx, auto.Index, usecase.FieldName, "x"))
	assert.Equal(t, once, s.Snapshot())
	assertBalanced(t, s)
}

type unsupportedCommand struct{}

func (unsupportedCommand) Kind() usecase.CommandKind { return "split_line" }

func TestSession_Dispatch(t *testing.T) {
	invoice := golInvoice("INV/2019/0014", "9000", "3000")
	f := newFixture(t, invoice)
	f.rules.EXPECT().FetchReconcileModel(gomock.Any(), "fees").Return(feesRule(), nil)
	f.rules.EXPECT().FetchReconcileModel(gomock.Any(), "missing").
		Return(domain.ReconcileModel{}, domain.NewDomainError(domain.ErrorNotFound, "id", "missing"))

	s := f.open(t, foreignTransaction())
	ctx := context.Background()

	assert.ErrorIs(t, s.Dispatch(ctx, nil), domain.ErrInvalidInput)
	assert.ErrorIs(t, s.Dispatch(ctx, unsupportedCommand{}), domain.ErrUnknownCommand)
	assert.ErrorIs(t, s.Dispatch(ctx, usecase.ApplyRuleCommand{RuleID: "missing"}), domain.ErrNotFound)
	assert.ErrorIs(t, s.Dispatch(ctx, usecase.AddSourceEntriesCommand{EntryIDs: []string{"nope"}}), domain.ErrNotFound)

	require.NoError(t, s.Dispatch(ctx, usecase.AddSourceEntriesCommand{EntryIDs: []string{invoice.ID}, AllowPartial: true}))
	source := s.WorkingSet().FirstWithRole(domain.RoleNewSourceEntry)
	require.NotNil(t, source)
	assert.True(t, source.IsPartial())

	require.NoError(t, s.Dispatch(ctx, usecase.RemoveLineCommand{Index: source.Index}))
	require.NoError(t, s.Dispatch(ctx, usecase.ApplyRuleCommand{RuleID: "fees"}))
	assert.NotEmpty(t, s.WorkingSet().LinesWithRole(domain.RoleManual))

	require.NoError(t, s.Dispatch(ctx, usecase.ResetCommand{}))
	ws := s.WorkingSet()
	require.Len(t, ws.Lines, 2)
	assert.Equal(t, domain.RoleLiquidity, ws.Lines[0].Role)
	assert.Equal(t, domain.RoleAutoBalance, ws.Lines[1].Role)
}
