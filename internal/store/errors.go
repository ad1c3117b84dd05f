package store

import (
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"attendtrack/internal/apperr"
)

// Postgres SQLSTATE codes the services care about.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
	codeCheckViolation      = "23514"
	codeInvalidText         = "22P02"
)

// Classify converts driver errors into apperr kinds. Unique violations are the
// authoritative "already exists" signal, whatever a caller checked beforehand.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("record not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return &apperr.Error{Kind: apperr.KindConflict, Message: "record already exists", Err: err}
		case codeForeignKeyViolation:
			return &apperr.Error{Kind: apperr.KindConflict, Message: "record references missing data or is still referenced", Err: err}
		case codeCheckViolation, codeInvalidText:
			return &apperr.Error{Kind: apperr.KindValidation, Message: "invalid value", Err: err}
		}
	}
	return apperr.Internal("storage failure", err)
}

// IsUniqueViolation reports whether err is a Postgres unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}

// NotFoundAs classifies err and, when it means "no such row", uses msg as the message.
func NotFoundAs(err error, msg string) error {
	err = Classify(err)
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.NotFound(msg)
	}
	return err
}
