/*
Package playbook loads and serves declarative recovery playbooks.

A playbook file declares, per service, how to check health, the ordered
remediation steps, and how to verify recovery:

	version: "1.0"
	defaults:
	  timeoutMs: 10000
	  maxRetries: 3
	  backoffMs: [2000, 5000, 10000]
	services:
	  postgres:
	    healthCheck:
	      command: "pg_isready -h ${PGHOST:-localhost}"
	      timeoutMs: 5000
	    recover:
	      - command: "docker compose up -d postgres"
	        timeoutMs: 30000
	      - command: "docker exec postgres pg_isready"
	        required: false
	    verify:
	      command: "pg_isready -h ${PGHOST:-localhost}"
	      timeoutMs: 5000

Files are validated, merged against defaults and interpolated at load
time. ${VAR} references resolve from the configured environment source;
${VAR:-default} falls back when the variable is unset. An undefined
variable with no default is a load error, so a daemon never starts with
a half-usable playbook.

The store is read-only to consumers. Reload replaces the full set
atomically and keeps the previous set when the new file is invalid.
Watch adds fsnotify-driven hot reload with a short debounce, so an
operator edit lands without restarting the daemon.
*/
package playbook
