package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := ParseDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestGenerateUUIDWithSuffix(t *testing.T) {
	module := "mov"
	id := GenerateUUIDWithSuffix(module)
	assert.Contains(t, id, module+"_")
}

func TestRoundMoney(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"10.005", "10.01"},
		{"10.004", "10"},
		{"0.125", "0.13"},
		{"-0.125", "-0.13"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, d(tt.want).Equal(RoundMoney(d(tt.in))), "got %s", RoundMoney(d(tt.in)))
		})
	}
}

func TestDayArithmetic(t *testing.T) {
	local := time.Date(2024, 1, 5, 23, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	assert.Equal(t, time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC), Day(local))
	assert.Equal(t, 4, DaysBetween(day("2024-01-01"), day("2024-01-05")))
	assert.Equal(t, day("2024-03-01"), AddDays(day("2024-02-28"), 2))
	assert.Equal(t, day("2024-01-03"), MinDay(day("2024-01-05"), day("2024-01-03")))
	assert.Equal(t, day("2024-01-05"), MaxDay(day("2024-01-05"), day("2024-01-03")))

	_, err := ParseDay("05/01/2024")
	assert.Error(t, err)
}

func TestMovement_Validate(t *testing.T) {
	cash := AccountRef{Kind: AccountKindCash, ID: "acc_1"}
	bank := AccountRef{Kind: AccountKindBank, ID: "acc_2"}
	base := Movement{Origin: cash, Date: day("2024-01-05"), Amount: d("50"), Direction: DirectionCredit}

	tests := []struct {
		name   string
		mutate func(m *Movement)
		want   error
	}{
		{"valid credit", func(m *Movement) {}, nil},
		{"zero amount", func(m *Movement) { m.Amount = decimal.Zero }, ErrNonPositiveAmount},
		{"negative amount", func(m *Movement) { m.Amount = d("-1") }, ErrNonPositiveAmount},
		{"transfer without destination", func(m *Movement) { m.Direction = DirectionTransfer }, ErrMissingDestination},
		{"debit with destination", func(m *Movement) { m.Direction = DirectionDebit; m.Destination = &bank }, ErrUnexpectedDestination},
		{"transfer to itself", func(m *Movement) { m.Direction = DirectionTransfer; m.Destination = &cash }, ErrSameOriginDestination},
		{"valid transfer", func(m *Movement) { m.Direction = DirectionTransfer; m.Destination = &bank }, nil},
		{"unknown direction", func(m *Movement) { m.Direction = "entrada" }, ErrUnknownDirection},
		{"missing date", func(m *Movement) { m.Date = time.Time{} }, ErrMissingMovementDate},
		{"missing origin", func(m *Movement) { m.Origin = AccountRef{} }, ErrMissingOrigin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := base
			tt.mutate(&m)
			assert.Equal(t, tt.want, m.Validate())
		})
	}
}

func TestMovement_Effects(t *testing.T) {
	cash := AccountRef{Kind: AccountKindCash, ID: "acc_1"}
	bank := AccountRef{Kind: AccountKindBank, ID: "acc_2"}

	credit := Movement{Origin: cash, Direction: DirectionCredit, Amount: d("50")}
	assert.True(t, d("50").Equal(credit.EffectOn(cash)))

	debit := Movement{Origin: cash, Direction: DirectionDebit, Amount: d("20")}
	assert.True(t, d("-20").Equal(debit.EffectOn(cash)))

	transfer := Movement{Origin: cash, Destination: &bank, Direction: DirectionTransfer, Amount: d("30")}
	assert.True(t, d("-30").Equal(transfer.EffectOn(cash)))
	assert.True(t, d("30").Equal(transfer.EffectOn(bank)))
	assert.Len(t, transfer.Effects(), 2)
}

func TestMergeEffects(t *testing.T) {
	cash := AccountRef{Kind: AccountKindCash, ID: "acc_1"}
	bank := AccountRef{Kind: AccountKindBank, ID: "acc_2"}

	old := Movement{Origin: cash, Destination: &bank, Direction: DirectionTransfer, Amount: d("30")}
	updated := Movement{Origin: cash, Direction: DirectionDebit, Amount: d("40")}

	merged := MergeEffects(Reversed(old.Effects()), updated.Effects())
	require.Len(t, merged, 2)
	assert.Equal(t, cash, merged[0].Account)
	assert.True(t, d("-10").Equal(merged[0].Delta))
	assert.Equal(t, bank, merged[1].Account)
	assert.True(t, d("-30").Equal(merged[1].Delta))

	same := MergeEffects(Reversed(updated.Effects()), updated.Effects())
	assert.Empty(t, same)
}

func TestMovement_Apply(t *testing.T) {
	bank := AccountRef{Kind: AccountKindBank, ID: "acc_2"}
	m := Movement{
		Origin:      AccountRef{Kind: AccountKindCash, ID: "acc_1"},
		Destination: &bank,
		Direction:   DirectionTransfer,
		Date:        day("2024-01-05"),
		Amount:      d("50"),
	}
	newDate := day("2024-01-03")
	credit := DirectionCredit
	got := m.Apply(MovementChanges{Date: &newDate, Direction: &credit, ClearDestination: true})

	assert.Equal(t, newDate, got.Date)
	assert.Equal(t, DirectionCredit, got.Direction)
	assert.Nil(t, got.Destination)
	assert.NotNil(t, m.Destination, "original must be untouched")
}

func TestMovement_LinkedDocument(t *testing.T) {
	m := Movement{Document: "CR-tit_1"}
	prefix, id, ok := m.LinkedDocument()
	assert.True(t, ok)
	assert.Equal(t, DocumentReceivable, prefix)
	assert.Equal(t, "tit_1", id)

	m.Document = "CP-pay_9"
	prefix, id, ok = m.LinkedDocument()
	assert.True(t, ok)
	assert.Equal(t, DocumentPayable, prefix)
	assert.Equal(t, "pay_9", id)

	m.Document = "NF-123"
	_, _, ok = m.LinkedDocument()
	assert.False(t, ok)

	m.Document = "CR-"
	_, _, ok = m.LinkedDocument()
	assert.False(t, ok)
}

func TestSettlement_PartialPaymentLifecycle(t *testing.T) {
	title := Title{TitleID: "tit_1", Settlement: NewSettlement(d("100.00"))}
	assert.Equal(t, TitleOpen, title.Status)
	assert.True(t, d("100").Equal(title.Pending))

	require.NoError(t, title.ApplyPayment(d("40.00"), PaymentDetails{PaidAt: day("2024-02-01")}))
	assert.Equal(t, TitlePartial, title.Status)
	assert.True(t, d("60").Equal(title.Pending))

	require.NoError(t, title.ApplyPayment(d("60.00"), PaymentDetails{PaidAt: day("2024-02-10")}))
	assert.Equal(t, TitlePaid, title.Status)
	assert.True(t, title.Pending.IsZero())
	assert.Equal(t, day("2024-02-10"), *title.PaidAt)
}

func TestSettlement_OverpaymentFloorsPending(t *testing.T) {
	s := NewSettlement(d("100"))
	require.NoError(t, s.ApplyPayment(d("120"), PaymentDetails{}))
	assert.True(t, s.Pending.IsZero())
	assert.Equal(t, TitlePaid, s.Status)
}

func TestSettlement_RejectsNonPositive(t *testing.T) {
	s := NewSettlement(d("100"))
	assert.ErrorIs(t, s.ApplyPayment(decimal.Zero, PaymentDetails{}), ErrNonPositivePayment)
	assert.Equal(t, TitleOpen, s.Status)
}

func TestSettlement_Reset(t *testing.T) {
	s := NewSettlement(d("100"))
	require.NoError(t, s.ApplyPayment(d("100"), PaymentDetails{PaidAt: day("2024-02-01"), Fine: d("2"), Interest: d("1")}))
	s.Reset()
	assert.Equal(t, TitleOpen, s.Status)
	assert.True(t, d("100").Equal(s.Pending))
	assert.True(t, s.Paid.IsZero())
	assert.True(t, s.Fine.IsZero())
	assert.Nil(t, s.PaidAt)
}

func TestSettlement_StatusOn(t *testing.T) {
	s := NewSettlement(d("100"))
	assert.Equal(t, TitleOverdue, s.StatusOn(day("2024-01-10"), day("2024-01-11")))
	assert.Equal(t, TitleOpen, s.StatusOn(day("2024-01-10"), day("2024-01-10")))
	require.NoError(t, s.ApplyPayment(d("100"), PaymentDetails{}))
	assert.Equal(t, TitlePaid, s.StatusOn(day("2024-01-10"), day("2024-02-01")))
}

func TestPaymentDetails_MovementAmount(t *testing.T) {
	p := PaymentDetails{Discount: d("5"), Fine: d("2"), Interest: d("1.50")}
	assert.True(t, d("98.50").Equal(p.MovementAmount(d("100"))))
}

func TestTitle_DefaultTrackingNumber(t *testing.T) {
	title := Title{ID: 42}
	assert.Equal(t, "0000000042", title.DefaultTrackingNumber())
	assert.Equal(t, "CR-tit_x", (&Title{TitleID: "tit_x"}).Document())
}

func TestWalkPositions(t *testing.T) {
	cash := AccountRef{Kind: AccountKindCash, ID: "acc_1"}
	movements := []Movement{
		{Origin: cash, Direction: DirectionCredit, Amount: d("50"), Date: day("2024-01-05")},
		{Origin: cash, Direction: DirectionDebit, Amount: d("20"), Date: day("2024-01-03")},
	}
	totals := DailyTotals(cash, movements)
	positions := WalkPositions(cash, d("100"), day("2024-01-01"), day("2024-01-06"), totals)

	require.Len(t, positions, 6)
	want := []string{"100", "100", "80", "80", "130", "130"}
	for i, p := range positions {
		assert.True(t, d(want[i]).Equal(p.Balance), "day %s: got %s", p.Date.Format(DayLayout), p.Balance)
	}
	assert.Nil(t, WalkPositions(cash, d("1"), day("2024-01-02"), day("2024-01-01"), totals))
}
