package service

import "strings"

// SecretPrefix is the fixed root of every secret-store path owned by a service.
const SecretPrefix = "/k8s/"

// Keys injected by a postgres requirement.
const (
	EnvDBUser         = "DB_USER"
	EnvDBName         = "DB_NAME"
	EnvDBHost         = "DB_HOST"
	EnvDBReplicasHost = "DB_REPLICAS_HOST"
	SecretDBPassword  = "DB_PASS"
)

// EnvRedisURL is injected by a redis requirement.
const EnvRedisURL = "REDIS_URL_NODE_01"

// PostgresKeys lists the env keys a postgres requirement adds.
var PostgresKeys = []string{EnvDBUser, EnvDBName, EnvDBHost, EnvDBReplicasHost}

// WithDefaults returns a copy of p with unset fields derived from the
// service name.
func (p *Postgres) WithDefaults(serviceName string) Postgres {
	out := *p.clone()
	if out.Name == "" {
		out.Name = strings.ReplaceAll(serviceName, "-", "_")
	}
	if out.Username == "" {
		out.Username = out.Name
	}
	if out.PasswordSecret == "" {
		out.PasswordSecret = SecretPrefix + serviceName + "/DB_PASSWORD"
	}
	return out
}
