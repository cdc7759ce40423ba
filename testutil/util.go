package testutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

const aclModel = `[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && r.obj == p.obj && r.act == p.act
`

// ACLFiles writes a casbin model and a policy made of the given lines into a temp dir
func ACLFiles(t *testing.T, policy ...string) (modelFile, policyFile string) {
	t.Helper()
	dir := t.TempDir()

	modelFile = filepath.Join(dir, "model.conf")
	require.NoError(t, os.WriteFile(modelFile, []byte(aclModel), 0o600))

	policyFile = filepath.Join(dir, "policy.csv")
	var body []byte
	for _, line := range policy {
		body = append(body, line...)
		body = append(body, '\n')
	}
	require.NoError(t, os.WriteFile(policyFile, body, 0o600))

	return modelFile, policyFile
}
