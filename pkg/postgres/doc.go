/*
Package postgres wraps the administrative operations the control plane
drives against a local PostgreSQL instance: start, stop, promote, status,
basebackup, reload configuration, and recovery-mode setup. Per the purpose
statement, the database engine itself is an external collaborator reached
only through this documented set of operations — never a database/sql
driver. The two SQL statements the controller needs (pg_is_in_recovery() in
Status, ALTER SYSTEM in SetSynchronousStandbyNames) run through psql
subprocesses.

Controller is implemented by CLIController, which shells out to pg_ctl,
pg_basebackup, and psql via os/exec. A FakeController exists for tests
that exercise pkg/failover and pkg/replication without a real PostgreSQL
install.
*/
package postgres
