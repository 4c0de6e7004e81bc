package repository

import (
	"context"

	"github.com/jackc/pgx/v4"
)

// Tx is an opaque transaction handle. Repositories accept nil and fall back
// to the connection pool.
type Tx interface{}

var NoTX Tx

// TransactionManager runs fn inside one database transaction and hands the
// handle to fn so repository calls join it.
//
//	tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
//		if err := transactions.Save(ctx, tx, t); err != nil {
//			return err
//		}
//		return subscriptions.Save(ctx, tx, s)
//	})
//
// The concrete handle is a pgx.Tx for the Postgres implementation.
type TransactionManager interface {
	WithTx(ctx context.Context, txOpt pgx.TxOptions, fn func(ctx context.Context, tx Tx) error) error
}
