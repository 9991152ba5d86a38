// Package repository реализует хранилище данных на основе PostgreSQL
// для пользователей, счётчиков расхода квот и сгенерированных рецептов.
// Предоставляет методы создания, чтения и обновления записей, включая
// атомарное условное списание единиц квоты.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	// Регистрация драйвера pgx для использования с database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

// isNoRows сообщает, что запрос не вернул ни одной строки.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// Storage инкапсулирует соединение с базой данных PostgreSQL
// и реализует методы работы с пользователями, квотами и рецептами.
type Storage struct {
	DB *sql.DB
}

// New создаёт подключение к PostgreSQL и проверяет его доступность.
func New(storageConnectionString string) (*Storage, error) {
	const op = "storage.New"

	db, err := sql.Open("pgx", storageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = db.PingContext(context.Background()); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{
		DB: db,
	}, nil
}

// CheckDatabaseReady проверяет готовность базы данных.
func CheckDatabaseReady(storage *Storage) error {
	var exists bool
	err := storage.DB.QueryRow(`SELECT EXISTS (
        SELECT FROM information_schema.tables
        WHERE table_name = 'usage_counters'
    )`).Scan(&exists)
	if err != nil || !exists {
		return fmt.Errorf("required table usage_counters missing or query error: %w", err)
	}
	return nil
}
