package datastore

import (
	"context"
)

// Table names shared by the generic store and the reconciler.
const (
	TableMembers          = "members"
	TableGroups           = "groups"
	TableLoans            = "loans"
	TableInstallments     = "installments"
	TablePayments         = "payments"
	TableCommunications   = "communications"
	TableRealizableAssets = "realizable_assets"
	TableTransactions     = "transactions"
)

// Filter matches rows by column equality. A nil value matches NULL.
type Filter map[string]interface{}

// Row is a generic row image. In a patch, a nil value writes NULL, which
// is how references get detached.
type Row map[string]interface{}

// Store is the narrow data-access contract the reconciler depends on:
// create, read, update, delete by table and filter. Nothing in it is tied
// to a particular storage engine or query language.
type Store interface {
	Query(ctx context.Context, table string, filter Filter) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) error
	Update(ctx context.Context, table string, filter Filter, patch Row) error
	Delete(ctx context.Context, table string, filter Filter) error
}
