package auth_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"transactions/internal/auth"
	"transactions/testutil"
)

func TestAuthorizer(t *testing.T) {
	model, policy := testutil.ACLFiles(t,
		"p, root, transaction-created, consume",
		"p, root, transactions, produce",
	)
	a := auth.New(model, policy)

	cases := map[string]struct {
		subject, object, action string
		allowed                 bool
	}{
		"root consumes":            {"root", "transaction-created", "consume", true},
		"root produces":            {"root", "transactions", "produce", true},
		"root other topic":         {"root", "transaction-completed", "consume", false},
		"nobody consumes":          {"nobody", "transaction-created", "consume", false},
		"anonymous subject denied": {"", "transaction-created", "consume", false},
	}
	for name, tc := range cases {
		err := a.Authorize(tc.subject, tc.object, tc.action)
		if tc.allowed {
			require.NoError(t, err, name)
			continue
		}
		require.Equal(t, codes.PermissionDenied, status.Code(err), name)
	}
}
