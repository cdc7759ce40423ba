package auth

import (
	"fmt"

	"github.com/casbin/casbin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// New loads the casbin ACL model and policy files
func New(model, policy string) *Authorizer {
	return &Authorizer{enforcer: casbin.NewEnforcer(model, policy)}
}

// Authorizer checks a subject's access to an object, e.g. ("root", "transaction-created", "consume")
type Authorizer struct {
	enforcer *casbin.Enforcer
}

func (a *Authorizer) Authorize(subject, object, action string) error {
	if a.enforcer.Enforce(subject, object, action) {
		return nil
	}
	msg := fmt.Sprintf("%s not permitted to %s to %s", subject, action, object)
	return status.New(codes.PermissionDenied, msg).Err()
}
