// Package models contains GORM persistence models that map to database tables.
// Domain entities stay free of ORM tags; each model converts with ToDomain and
// a FromDomain constructor.
//
// JSON columns use gorm.io/datatypes so the same model migrates on Postgres
// (jsonb) and SQLite (json) in tests.
package models
