// Package credentials supplies the login used for digest authentication
// against the FetchClimate service.
package credentials

import (
	"context"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Credentials is a login/password pair.
type Credentials struct {
	Login    string
	Password string
}

// Source returns the credentials to use for the next request.
type Source interface {
	Credentials(ctx context.Context) (Credentials, error)
}

// Static always returns the same credentials.
type Static Credentials

// Credentials implements Source.
func (s Static) Credentials(context.Context) (Credentials, error) {
	return Credentials(s), nil
}

// Anonymous is the unprivileged login accepted by the public service.
var Anonymous = Static{Login: "anonymous", Password: "anonymous"}

// Env reads FETCHCLIMATE_LOGIN and FETCHCLIMATE_PASSWORD on every call,
// falling back to the anonymous login.
type Env struct{}

// Credentials implements Source.
func (Env) Credentials(context.Context) (Credentials, error) {
	return Credentials{
		Login:    sharedcfg.EnvOrDefault("FETCHCLIMATE_LOGIN", Anonymous.Login),
		Password: sharedcfg.EnvOrDefault("FETCHCLIMATE_PASSWORD", Anonymous.Password),
	}, nil
}
