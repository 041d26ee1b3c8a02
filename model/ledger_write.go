package model

// LedgerWrite is the unit a datasource applies atomically: the movement row
// change, the account balance deltas and any document it settles or resets.
// Either every part is persisted or none is.
type LedgerWrite struct {
	Insert   *Movement
	Update   *Movement
	DeleteID string

	Effects []BalanceEffect

	Title   *Title
	Payable *Payable

	Reconciliation *Reconciliation
}

// Empty reports whether the write would change nothing.
func (w *LedgerWrite) Empty() bool {
	return w.Insert == nil && w.Update == nil && w.DeleteID == "" &&
		len(w.Effects) == 0 && w.Title == nil && w.Payable == nil && w.Reconciliation == nil
}
