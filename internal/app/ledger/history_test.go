package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsaver/smartsaver/internal/domain"
)

// historyFixture builds a log of: income 50, expense 5, deposit 20, settlement.
func historyFixture(t *testing.T) domain.LedgerState {
	t.Helper()
	s, err := RecordIncome(domain.NewLedgerState(), d("50"), "gift", testNow)
	require.NoError(t, err)
	s, err = RecordExpense(s, d("5"), "candy", testNow.Add(1))
	require.NoError(t, err)
	s, g, err := CreateGoal(s, "bike", d("100"), "")
	require.NoError(t, err)
	s, _, err = DepositToGoal(s, g.ID, d("20"), testNow.Add(2))
	require.NoError(t, err)
	s, _ = ApplySettlement(s, "day", testNow.Add(3))
	return s
}

func TestParseFilter(t *testing.T) {
	f, err := ParseFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)

	f, err = ParseFilter("transfer_out")
	require.NoError(t, err)
	assert.Equal(t, Filter("TRANSFER_OUT"), f)

	_, err = ParseFilter("REFUND")
	assert.Error(t, err)
}

func TestParseSortOrder(t *testing.T) {
	o, err := ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, SortDateDesc, o)

	_, err = ParseSortOrder("RANDOM")
	assert.Error(t, err)
}

func TestQuery_Filters(t *testing.T) {
	s := historyFixture(t)

	assert.Len(t, Query(s.Transactions, FilterAll, SortDateDesc), 5)
	assert.Len(t, Query(s.Transactions, Filter(domain.KindIncome), SortDateDesc), 2)
	assert.Len(t, Query(s.Transactions, FilterTransfers, SortDateDesc), 1)
	assert.Empty(t, Query(s.Transactions, Filter(domain.KindBonus), SortDateDesc))
}

func TestQuery_Sorts(t *testing.T) {
	s := historyFixture(t)

	asc := Query(s.Transactions, FilterAll, SortDateAsc)
	assert.Equal(t, "Extra income: gift", asc[0].Description)
	// The settlement rows share one timestamp and keep their log order.
	assert.Equal(t, domain.KindInterest, asc[3].Kind)
	assert.Equal(t, domain.KindIncome, asc[4].Kind)

	desc := Query(s.Transactions, FilterAll, SortDateDesc)
	assert.Equal(t, s.Transactions, desc)

	byAmount := Query(s.Transactions, FilterAll, SortAmountDesc)
	assertDec(t, "50", byAmount[0].Amount)
	assertDec(t, "-20", byAmount[1].Amount, "absolute value ordering")

	small := Query(s.Transactions, FilterAll, SortAmountAsc)
	assert.Equal(t, domain.KindExpense, small[0].Kind)

	assert.Equal(t, "Extra income: gift", s.Transactions[len(s.Transactions)-1].Description, "input untouched")
}

func TestTrend(t *testing.T) {
	s := historyFixture(t)

	points := Trend(s.Transactions, 3)
	require.Len(t, points, 3)
	assert.Equal(t, 0, points[0].Index)
	assert.Equal(t, "Deposit to goal: bike", points[0].Description)
	assertDec(t, "45", points[0].Balance)
	assertDec(t, s.TotalAssets.String(), points[2].Balance)

	assert.Len(t, Trend(s.Transactions, 0), 5)
	assert.Len(t, Trend(s.Transactions, 100), 5)
	assert.Empty(t, Trend(nil, TrendLimit))
}
