/*
Package migration schema-migrates the registry's provider_configs
table across PostgreSQL, MySQL, and SQLite, built on golang-migrate.

# Overview

SQL migration files for each dialect are embedded via embed.FS, and
golang-migrate drives the registry store's schema forward (Up) or back
one step (Down). registry.OpenStore runs Up before handing out a
connection, and the oracled "migrate" subcommand exposes Up/Down/
Version directly for operators.

# Core types

  - Migrator: wraps a golang-migrate instance and its database
    connection, exposing Up/Down/Version/Close.
  - Config: migration configuration (database type, connection URL,
    migration table name).
  - DatabaseType: the postgres/mysql/sqlite enum.

# Capabilities

  - NewMigratorFromDatabaseConfig builds a Migrator straight from
    config.DatabaseConfig, the same struct registry.Store connects
    with.
  - ParseDatabaseType / BuildDatabaseURL translate a configured driver
    name and its key=value fields into the URL-form DSN the migration
    driver expects.
*/
package migration
