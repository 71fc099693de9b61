// Package storage содержит общие ошибки хранилищ пользователей.
// Реализации: repository (PostgreSQL, надёжное хранилище) и cachestore (redis).
package storage

import "errors"

var (
	// ErrUserNotFound пользователь с таким email или id отсутствует в хранилище.
	ErrUserNotFound = errors.New("user not found")
	// ErrUserExists пользователь с таким нормализованным email уже есть в хранилище.
	ErrUserExists = errors.New("user already exists")
)
