package reconciler

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikopo/backoffice/internal/datastore"
	"github.com/mikopo/backoffice/internal/domain"
)

// State is the terminal outcome of a deletion attempt.
type State string

const (
	StateDeleted State = "deleted"
	StateBlocked State = "blocked"
	StateFailed  State = "failed"
)

// Outcome reports how a deletion attempt ended. Blocked is a normal,
// expected result and always carries a reason the operator can act on;
// Failed carries the underlying storage error.
type Outcome struct {
	State  State
	Reason string
	Err    error
}

// Decision is the answer to a pre-flight "can this be deleted" check.
type Decision struct {
	Allowed bool
	Reason  string
}

// Reconciler removes a member or loan together with its web of dependent
// records, in an order that respects the storage layer's foreign keys.
//
// Every step is individually idempotent, so rerunning the whole procedure
// after a partial completion is always safe. No transaction wraps the
// sequence; a verification re-query after the bulk deletes is the
// correctness backstop instead.
type Reconciler struct {
	store      datastore.Store
	verifyWait time.Duration
	sleep      func(time.Duration)
}

func New(store datastore.Store, verifyWait time.Duration) *Reconciler {
	return &Reconciler{
		store:      store,
		verifyWait: verifyWait,
		sleep:      time.Sleep,
	}
}

// CanDeleteMember checks whether the member has loans still in a
// non-terminal state. Written-off loans do not count as active, but they
// still physically block foreign keys and get cascaded by DeleteMember.
func (r *Reconciler) CanDeleteMember(ctx context.Context, memberID string) (Decision, error) {
	active, err := r.countActiveLoans(ctx, memberID)
	if err != nil {
		return Decision{}, err
	}
	if active > 0 {
		return Decision{Reason: activeLoanReason(active)}, nil
	}
	return Decision{Allowed: true}, nil
}

// DeleteMember runs the full member deletion procedure: refuse while
// active loans exist, cascade every remaining loan's dependents, verify
// the loans are really gone, detach group contact-person references, then
// delete the member row itself.
func (r *Reconciler) DeleteMember(ctx context.Context, memberID string) Outcome {
	decision, err := r.CanDeleteMember(ctx, memberID)
	if err != nil {
		return Outcome{State: StateFailed, Reason: "could not check active loans", Err: err}
	}
	if !decision.Allowed {
		return Outcome{State: StateBlocked, Reason: decision.Reason}
	}

	// Repaid and written-off loans still hold foreign keys on the member,
	// so every remaining loan row has to go, soft-delete flag or not.
	loans, err := r.store.Query(ctx, datastore.TableLoans, datastore.Filter{"member_id": memberID})
	if err != nil {
		return Outcome{State: StateFailed, Reason: "could not list loans", Err: err}
	}

	if len(loans) > 0 {
		for _, loan := range loans {
			r.clearLoanDependents(ctx, asString(loan["id"]))
		}

		// Some backends apply deletes asynchronously relative to the next
		// read. One bounded wait, then a hard verification; never an
		// unbounded retry loop.
		r.sleep(r.verifyWait)

		remaining, err := r.store.Query(ctx, datastore.TableLoans, datastore.Filter{"member_id": memberID})
		if err != nil {
			return Outcome{State: StateFailed, Reason: "could not verify loan deletion", Err: err}
		}
		if len(remaining) > 0 {
			return Outcome{
				State:  StateBlocked,
				Reason: fmt.Sprintf("could not remove %d dependent loan(s)", len(remaining)),
			}
		}
	}

	// The member may be a group's designated contact person. Informational
	// back-reference only: detach it, never block on it.
	groups, err := r.store.Query(ctx, datastore.TableGroups, datastore.Filter{"contact_member_id": memberID})
	if err == nil {
		for _, group := range groups {
			if derr := r.store.Update(ctx, datastore.TableGroups,
				datastore.Filter{"id": group["id"]},
				datastore.Row{"contact_member_id": nil}); derr != nil {
				log.Printf("reconciler: detach contact person on group %v: %v", group["id"], derr)
			}
		}
	}

	if err := r.store.Delete(ctx, datastore.TableMembers, datastore.Filter{"id": memberID}); err != nil {
		return r.explainMemberDeleteFailure(ctx, memberID, err)
	}

	return Outcome{State: StateDeleted}
}

// CanDeleteLoan refuses while the loan is still business-active.
func (r *Reconciler) CanDeleteLoan(ctx context.Context, loanID string) (Decision, error) {
	loans, err := r.store.Query(ctx, datastore.TableLoans, datastore.Filter{"id": loanID})
	if err != nil {
		return Decision{}, err
	}
	for _, loan := range loans {
		if loanIsActive(loan) {
			return Decision{Reason: "loan is still active"}, nil
		}
	}
	return Decision{Allowed: true}, nil
}

// DeleteLoan cascades one loan's dependents and removes the loan row.
// Deleting an already-absent loan is a no-op success.
func (r *Reconciler) DeleteLoan(ctx context.Context, loanID string) Outcome {
	decision, err := r.CanDeleteLoan(ctx, loanID)
	if err != nil {
		return Outcome{State: StateFailed, Reason: "could not check loan status", Err: err}
	}
	if !decision.Allowed {
		return Outcome{State: StateBlocked, Reason: decision.Reason}
	}

	r.clearLoanDependents(ctx, loanID)

	r.sleep(r.verifyWait)

	remaining, err := r.store.Query(ctx, datastore.TableLoans, datastore.Filter{"id": loanID})
	if err != nil {
		return Outcome{State: StateFailed, Reason: "could not verify loan deletion", Err: err}
	}
	if len(remaining) > 0 {
		return Outcome{State: StateBlocked, Reason: "could not remove 1 dependent loan(s)"}
	}

	return Outcome{State: StateDeleted}
}

// clearLoanDependents removes or detaches everything referencing one loan,
// in foreign-key order, then deletes the loan row. Failures on individual
// steps are logged and do not abort the sequence; the caller's
// verification re-query decides whether the whole operation stuck.
func (r *Reconciler) clearLoanDependents(ctx context.Context, loanID string) {
	byLoan := datastore.Filter{"loan_id": loanID}

	// Realizable assets degrade gracefully: if the delete fails, detach
	// the loan reference instead so the loan row itself can still go.
	if err := r.store.Delete(ctx, datastore.TableRealizableAssets, byLoan); err != nil {
		if derr := r.store.Update(ctx, datastore.TableRealizableAssets, byLoan,
			datastore.Row{"loan_id": nil}); derr != nil {
			log.Printf("reconciler: detach realizable assets for loan %s: %v", loanID, derr)
		}
	}

	if err := r.store.Delete(ctx, datastore.TableInstallments, byLoan); err != nil {
		log.Printf("reconciler: delete installments for loan %s: %v", loanID, err)
	}
	if err := r.store.Delete(ctx, datastore.TablePayments, byLoan); err != nil {
		log.Printf("reconciler: delete payments for loan %s: %v", loanID, err)
	}
	if err := r.store.Delete(ctx, datastore.TableCommunications, byLoan); err != nil {
		log.Printf("reconciler: delete communications for loan %s: %v", loanID, err)
	}

	// General transactions are shared bookkeeping; detach, never delete.
	if err := r.store.Update(ctx, datastore.TableTransactions, byLoan,
		datastore.Row{"loan_id": nil}); err != nil {
		log.Printf("reconciler: detach transactions for loan %s: %v", loanID, err)
	}

	if err := r.store.Delete(ctx, datastore.TableLoans, datastore.Filter{"id": loanID}); err != nil {
		log.Printf("reconciler: delete loan %s: %v", loanID, err)
	}
}

// explainMemberDeleteFailure turns the final delete's error into something
// an operator can act on. A foreign-key violation means a dependent
// slipped past the cascade: re-check for active loans so the report is
// precise rather than a generic failure.
func (r *Reconciler) explainMemberDeleteFailure(ctx context.Context, memberID string, err error) Outcome {
	if !datastore.IsForeignKeyViolation(err) {
		return Outcome{State: StateFailed, Reason: "could not delete member", Err: err}
	}

	active, cerr := r.countActiveLoans(ctx, memberID)
	if cerr == nil && active > 0 {
		return Outcome{State: StateBlocked, Reason: activeLoanReason(active)}
	}
	return Outcome{
		State:  StateBlocked,
		Reason: "member has dependent records, contact administrator",
	}
}

func (r *Reconciler) countActiveLoans(ctx context.Context, memberID string) (int, error) {
	loans, err := r.store.Query(ctx, datastore.TableLoans, datastore.Filter{"member_id": memberID})
	if err != nil {
		return 0, err
	}

	active := 0
	for _, loan := range loans {
		if loanIsActive(loan) {
			active++
		}
	}
	return active, nil
}

// loanIsActive applies the business-active rule to a raw row: the
// soft-delete flag is respected here, unlike the physical-existence
// checks above which ignore it.
func loanIsActive(loan datastore.Row) bool {
	return !domain.IsTerminalStatus(asString(loan["status"])) && !asBool(loan["deleted"])
}

func activeLoanReason(n int) string {
	return fmt.Sprintf("member has %d active loan(s)", n)
}

// asString tolerates the driver returning text columns as []byte.
func asString(v interface{}) string {
	switch s := v.(type) {
	case string:
		return s
	case []byte:
		return string(s)
	default:
		return fmt.Sprintf("%v", v)
	}
}

func asBool(v interface{}) bool {
	switch b := v.(type) {
	case bool:
		return b
	case int64:
		return b != 0
	default:
		return false
	}
}
