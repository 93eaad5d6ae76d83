package service

import (
	"context"

	"driftline/internal/domain"
)

var ctx = context.Background()

// adminCtx returns a context with an admin principal for testing.
func adminCtx() context.Context {
	return domain.WithPrincipal(context.Background(), domain.ContextPrincipal{
		Name: "admin-user", IsAdmin: true, Type: "user",
	})
}

// nonAdminCtx returns a context with a non-admin principal for testing.
func nonAdminCtx() context.Context {
	return domain.WithPrincipal(context.Background(), domain.ContextPrincipal{
		Name: "regular-user", IsAdmin: false, Type: "user",
	})
}

// fakeReloader counts schedule reload requests.
type fakeReloader struct {
	calls int
}

func (f *fakeReloader) Reload(context.Context) error {
	f.calls++
	return nil
}
