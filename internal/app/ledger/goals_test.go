package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartsaver/smartsaver/internal/domain"
)

func TestCreateGoal(t *testing.T) {
	s := stateWith("10")
	next, g, err := CreateGoal(s, " Bike ", d("200"), "https://img/bike.png")
	require.NoError(t, err)

	assert.NotEmpty(t, g.ID)
	assert.Equal(t, "Bike", g.Name)
	assertDec(t, "0", g.CurrentAmount)
	assert.False(t, g.IsCompleted)
	require.Len(t, next.Goals, 1)
	assert.Empty(t, s.Goals)
	assert.Empty(t, next.Transactions, "creating a goal moves no money")
}

func TestCreateGoal_Capacity(t *testing.T) {
	s := stateWith("0")
	var err error
	for i := 0; i < domain.MaxGoals; i++ {
		s, _, err = CreateGoal(s, "goal", d("10"), "")
		require.NoError(t, err)
	}
	next, _, err := CreateGoal(s, "one more", d("10"), "")
	assert.ErrorIs(t, err, domain.ErrCapacityExceeded)
	assert.Len(t, next.Goals, domain.MaxGoals)
}

func TestCreateGoal_Invalid(t *testing.T) {
	_, _, err := CreateGoal(stateWith("0"), "", d("10"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidGoal)

	_, _, err = CreateGoal(stateWith("0"), "bike", d("0"), "")
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestDepositToGoal(t *testing.T) {
	s, g, err := CreateGoal(stateWith("100"), "bike", d("50"), "")
	require.NoError(t, err)

	next, completed, err := DepositToGoal(s, g.ID, d("30"), testNow)
	require.NoError(t, err)
	assert.False(t, completed)
	assertDec(t, "70", next.WalletBalance)
	assertDec(t, "100", next.TotalAssets, "total is unchanged by transfers")
	assertDec(t, "30", next.Goals[0].CurrentAmount)
	assert.True(t, next.Balanced())

	tx := next.Transactions[0]
	assert.Equal(t, domain.KindTransferOut, tx.Kind)
	assertDec(t, "-30", tx.Amount)
	assertDec(t, "100", tx.BalanceSnapshot)
	assert.Equal(t, "Deposit to goal: bike", tx.Description)
}

func TestDepositToGoal_CompletionLatches(t *testing.T) {
	s, g, _ := CreateGoal(stateWith("100"), "bike", d("50"), "")

	s, completed, err := DepositToGoal(s, g.ID, d("50"), testNow)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.True(t, s.Goals[0].IsCompleted)

	s, completed, err = DepositToGoal(s, g.ID, d("10"), testNow)
	require.NoError(t, err)
	assert.False(t, completed, "only the first crossing reports completion")
	assert.True(t, s.Goals[0].IsCompleted)
	assertDec(t, "60", s.Goals[0].CurrentAmount)
}

func TestDepositToGoal_OverWalletRejected(t *testing.T) {
	s, g, _ := CreateGoal(stateWith("20"), "bike", d("50"), "")

	next, completed, err := DepositToGoal(s, g.ID, d("25"), testNow)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)
	assert.False(t, completed)
	assertDec(t, "20", next.WalletBalance)
	assertDec(t, "0", next.Goals[0].CurrentAmount)
	assert.Empty(t, next.Transactions)
}

func TestDepositToGoal_Errors(t *testing.T) {
	s, g, _ := CreateGoal(stateWith("20"), "bike", d("50"), "")

	_, _, err := DepositToGoal(s, "missing", d("5"), testNow)
	assert.ErrorIs(t, err, domain.ErrGoalNotFound)

	_, _, err = DepositToGoal(s, g.ID, d("0"), testNow)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestDeleteGoal_Refunds(t *testing.T) {
	s, g, _ := CreateGoal(stateWith("100"), "bike", d("50"), "")
	s, _, _ = DepositToGoal(s, g.ID, d("40"), testNow)

	next, refund, err := DeleteGoal(s, g.ID, testNow)
	require.NoError(t, err)
	assertDec(t, "40", refund)
	assert.Empty(t, next.Goals)
	assertDec(t, "100", next.WalletBalance)
	assertDec(t, "100", next.TotalAssets)
	assert.Equal(t, domain.KindTransferIn, next.Transactions[0].Kind)
	assert.Equal(t, "Goal deleted, refund: bike", next.Transactions[0].Description)
	assert.Len(t, s.Goals, 1, "input state must not change")
}

func TestDeleteGoal_EmptyGoalNoEntry(t *testing.T) {
	s, g, _ := CreateGoal(stateWith("10"), "bike", d("50"), "")
	next, refund, err := DeleteGoal(s, g.ID, testNow)
	require.NoError(t, err)
	assertDec(t, "0", refund)
	assert.Empty(t, next.Transactions)

	_, _, err = DeleteGoal(next, g.ID, testNow)
	assert.ErrorIs(t, err, domain.ErrGoalNotFound)
}

func TestDeleteGoal_KeepsOtherGoals(t *testing.T) {
	s := stateWith("0")
	s, a, _ := CreateGoal(s, "a", d("10"), "")
	s, b, _ := CreateGoal(s, "b", d("10"), "")
	s, c, _ := CreateGoal(s, "c", d("10"), "")

	next, _, err := DeleteGoal(s, b.ID, testNow)
	require.NoError(t, err)
	require.Len(t, next.Goals, 2)
	assert.Equal(t, a.ID, next.Goals[0].ID)
	assert.Equal(t, c.ID, next.Goals[1].ID)
	assert.Equal(t, b.ID, s.Goals[1].ID, "input backing array untouched")
}
