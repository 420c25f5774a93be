package repository

import "database/sql"

// nullString は空文字列をNULLとして書き込むためのヘルパー。
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

// nullStringValue はNULLを空文字列として読み取るためのヘルパー。
func nullStringValue(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
