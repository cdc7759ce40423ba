package memory_test

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"transactions/transaction"
	"transactions/transaction/memory"
	"transactions/transaction/storetest"
)

func TestStores(t *testing.T) {
	suite.Run(t, storetest.New(func() (transaction.TransactionRepo, transaction.EventRepo, func()) {
		return memory.NewTransactionRepo(), memory.NewEventRepo(), func() {}
	}))
}
