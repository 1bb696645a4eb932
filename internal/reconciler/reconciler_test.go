package reconciler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mikopo/backoffice/internal/datastore"
	"github.com/mikopo/backoffice/internal/domain"
)

func newTestReconciler(store datastore.Store) *Reconciler {
	r := New(store, 300*time.Millisecond)
	r.sleep = func(time.Duration) {} // no waiting in tests
	return r
}

func seedLoan(store *datastore.Memory, memberID string, status string, deleted bool) string {
	loanID := uuid.NewString()
	_ = store.Insert(context.Background(), datastore.TableLoans, datastore.Row{
		"id":        loanID,
		"member_id": memberID,
		"status":    status,
		"deleted":   deleted,
	})
	return loanID
}

func seedDependents(store *datastore.Memory, loanID string) {
	ctx := context.Background()
	_ = store.Insert(ctx, datastore.TablePayments, datastore.Row{"id": uuid.NewString(), "loan_id": loanID})
	_ = store.Insert(ctx, datastore.TableInstallments, datastore.Row{"id": uuid.NewString(), "loan_id": loanID})
	_ = store.Insert(ctx, datastore.TableCommunications, datastore.Row{"id": uuid.NewString(), "loan_id": loanID})
	_ = store.Insert(ctx, datastore.TableRealizableAssets, datastore.Row{"id": uuid.NewString(), "loan_id": loanID})
	_ = store.Insert(ctx, datastore.TableTransactions, datastore.Row{"id": uuid.NewString(), "loan_id": loanID, "kind": "repayment"})
}

func seedMember(store *datastore.Memory) string {
	memberID := uuid.NewString()
	_ = store.Insert(context.Background(), datastore.TableMembers, datastore.Row{"id": memberID, "name": "Asha"})
	return memberID
}

func TestCanDeleteMember_BlockedByActiveLoan(t *testing.T) {
	store := datastore.NewMemory()
	memberID := seedMember(store)
	seedLoan(store, memberID, domain.LoanStatusPending, false)

	rec := newTestReconciler(store)

	decision, err := rec.CanDeleteMember(context.Background(), memberID)
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, "member has 1 active loan(s)", decision.Reason)
}

func TestCanDeleteMember_RepaidLoansDoNotBlock(t *testing.T) {
	store := datastore.NewMemory()
	memberID := seedMember(store)
	seedLoan(store, memberID, domain.LoanStatusRepaid, false)
	seedLoan(store, memberID, domain.LoanStatusCompleted, false)

	rec := newTestReconciler(store)

	decision, err := rec.CanDeleteMember(context.Background(), memberID)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestCanDeleteMember_WrittenOffLoanNotActive(t *testing.T) {
	// The soft-delete flag is respected for the business-active check even
	// though the row still physically exists.
	store := datastore.NewMemory()
	memberID := seedMember(store)
	seedLoan(store, memberID, domain.LoanStatusActive, true)

	rec := newTestReconciler(store)

	decision, err := rec.CanDeleteMember(context.Background(), memberID)
	require.NoError(t, err)
	assert.True(t, decision.Allowed)
}

func TestDeleteMember_Blocked(t *testing.T) {
	store := datastore.NewMemory()
	memberID := seedMember(store)
	seedLoan(store, memberID, domain.LoanStatusActive, false)

	rec := newTestReconciler(store)

	outcome := rec.DeleteMember(context.Background(), memberID)
	assert.Equal(t, StateBlocked, outcome.State)
	assert.Equal(t, "member has 1 active loan(s)", outcome.Reason)
	assert.Equal(t, 1, store.Count(datastore.TableMembers, datastore.Filter{"id": memberID}))
}

func TestDeleteMember_CascadesRepaidLoans(t *testing.T) {
	store := datastore.NewMemory()
	memberID := seedMember(store)
	loanID := seedLoan(store, memberID, domain.LoanStatusRepaid, false)
	seedDependents(store, loanID)

	rec := newTestReconciler(store)

	outcome := rec.DeleteMember(context.Background(), memberID)
	require.Equal(t, StateDeleted, outcome.State, "reason: %s err: %v", outcome.Reason, outcome.Err)

	byLoan := datastore.Filter{"loan_id": loanID}
	assert.Equal(t, 0, store.Count(datastore.TableLoans, datastore.Filter{"id": loanID}))
	assert.Equal(t, 0, store.Count(datastore.TablePayments, byLoan))
	assert.Equal(t, 0, store.Count(datastore.TableInstallments, byLoan))
	assert.Equal(t, 0, store.Count(datastore.TableCommunications, byLoan))
	assert.Equal(t, 0, store.Count(datastore.TableRealizableAssets, byLoan))
	assert.Equal(t, 0, store.Count(datastore.TableMembers, datastore.Filter{"id": memberID}))

	// Transactions are shared bookkeeping: detached, never removed.
	assert.Equal(t, 1, store.Count(datastore.TableTransactions, datastore.Filter{"kind": "repayment"}))
	assert.Equal(t, 0, store.Count(datastore.TableTransactions, byLoan))
}

func TestDeleteMember_WrittenOffLoanStillCascaded(t *testing.T) {
	// Foreign keys apply regardless of the soft-delete flag, so the
	// written-off loan row has to go before the member can.
	store := datastore.NewMemory()
	memberID := seedMember(store)
	loanID := seedLoan(store, memberID, domain.LoanStatusRepaid, true)
	seedDependents(store, loanID)

	rec := newTestReconciler(store)

	outcome := rec.DeleteMember(context.Background(), memberID)
	require.Equal(t, StateDeleted, outcome.State)
	assert.Equal(t, 0, store.Count(datastore.TableLoans, datastore.Filter{"id": loanID}))
}

func TestDeleteMember_DetachesGroupContactPerson(t *testing.T) {
	store := datastore.NewMemory()
	memberID := seedMember(store)
	groupID := uuid.NewString()
	_ = store.Insert(context.Background(), datastore.TableGroups, datastore.Row{
		"id":                groupID,
		"name":              "Umoja",
		"contact_member_id": memberID,
	})

	rec := newTestReconciler(store)

	outcome := rec.DeleteMember(context.Background(), memberID)
	require.Equal(t, StateDeleted, outcome.State)

	assert.Equal(t, 1, store.Count(datastore.TableGroups, datastore.Filter{"id": groupID}))
	assert.Equal(t, 0, store.Count(datastore.TableGroups, datastore.Filter{"contact_member_id": memberID}))
}

func TestDeleteMember_Idempotent(t *testing.T) {
	store := datastore.NewMemory()
	memberID := seedMember(store)
	loanID := seedLoan(store, memberID, domain.LoanStatusRepaid, false)
	seedDependents(store, loanID)

	rec := newTestReconciler(store)

	first := rec.DeleteMember(context.Background(), memberID)
	require.Equal(t, StateDeleted, first.State)

	// Second run on the already-deleted member: same terminal report,
	// no dependents found, no error.
	second := rec.DeleteMember(context.Background(), memberID)
	assert.Equal(t, StateDeleted, second.State)
	assert.NoError(t, second.Err)
}

func TestDeleteMember_AssetDeleteFailureFallsBackToDetach(t *testing.T) {
	store := datastore.NewMemory()
	memberID := seedMember(store)
	loanID := seedLoan(store, memberID, domain.LoanStatusRepaid, false)
	seedDependents(store, loanID)

	store.FailHook = func(op, table string) error {
		if op == "delete" && table == datastore.TableRealizableAssets {
			return errors.New("delete refused")
		}
		return nil
	}

	rec := newTestReconciler(store)

	outcome := rec.DeleteMember(context.Background(), memberID)
	require.Equal(t, StateDeleted, outcome.State)

	// Asset row survives but no longer references the loan.
	assert.Equal(t, 1, store.Count(datastore.TableRealizableAssets, nil))
	assert.Equal(t, 0, store.Count(datastore.TableRealizableAssets, datastore.Filter{"loan_id": loanID}))
}

func TestDeleteMember_VerificationFindsResidualLoans(t *testing.T) {
	store := datastore.NewMemory()
	memberID := seedMember(store)
	seedLoan(store, memberID, domain.LoanStatusRepaid, false)
	seedLoan(store, memberID, domain.LoanStatusRepaid, false)

	store.FailHook = func(op, table string) error {
		if op == "delete" && table == datastore.TableLoans {
			return errors.New("backend refused the delete")
		}
		return nil
	}

	rec := newTestReconciler(store)

	outcome := rec.DeleteMember(context.Background(), memberID)
	assert.Equal(t, StateBlocked, outcome.State)
	assert.Equal(t, "could not remove 2 dependent loan(s)", outcome.Reason)
	// The member row must not be touched after a failed verification.
	assert.Equal(t, 1, store.Count(datastore.TableMembers, datastore.Filter{"id": memberID}))
}

func TestDeleteMember_ForeignKeyViolationReportsPrecisely(t *testing.T) {
	store := datastore.NewMemory()
	memberID := seedMember(store)

	store.FailHook = func(op, table string) error {
		if op == "delete" && table == datastore.TableMembers {
			return &pq.Error{Code: "23503"}
		}
		return nil
	}

	rec := newTestReconciler(store)

	outcome := rec.DeleteMember(context.Background(), memberID)
	assert.Equal(t, StateBlocked, outcome.State)
	assert.Equal(t, "member has dependent records, contact administrator", outcome.Reason)
}

func TestDeleteMember_OtherDeleteErrorFails(t *testing.T) {
	store := datastore.NewMemory()
	memberID := seedMember(store)

	boom := errors.New("connection reset")
	store.FailHook = func(op, table string) error {
		if op == "delete" && table == datastore.TableMembers {
			return boom
		}
		return nil
	}

	rec := newTestReconciler(store)

	outcome := rec.DeleteMember(context.Background(), memberID)
	assert.Equal(t, StateFailed, outcome.State)
	assert.ErrorIs(t, outcome.Err, boom)
}

func TestDeleteLoan(t *testing.T) {
	store := datastore.NewMemory()
	memberID := seedMember(store)

	t.Run("active loan is blocked", func(t *testing.T) {
		loanID := seedLoan(store, memberID, domain.LoanStatusActive, false)

		rec := newTestReconciler(store)
		outcome := rec.DeleteLoan(context.Background(), loanID)
		assert.Equal(t, StateBlocked, outcome.State)
	})

	t.Run("repaid loan cascades", func(t *testing.T) {
		loanID := seedLoan(store, memberID, domain.LoanStatusRepaid, false)
		seedDependents(store, loanID)

		rec := newTestReconciler(store)
		outcome := rec.DeleteLoan(context.Background(), loanID)
		require.Equal(t, StateDeleted, outcome.State)
		assert.Equal(t, 0, store.Count(datastore.TableLoans, datastore.Filter{"id": loanID}))
		assert.Equal(t, 0, store.Count(datastore.TablePayments, datastore.Filter{"loan_id": loanID}))
	})

	t.Run("absent loan deletes cleanly", func(t *testing.T) {
		rec := newTestReconciler(store)
		outcome := rec.DeleteLoan(context.Background(), uuid.NewString())
		assert.Equal(t, StateDeleted, outcome.State)
	})
}
