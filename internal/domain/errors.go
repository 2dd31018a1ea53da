package domain

import "errors"

// ErrRateLimited сигнализирует об ограничении частоты запросов у внешней
// способности дополнения. Единственный повторяемый класс ошибок генерации.
var ErrRateLimited = errors.New("превышен лимит запросов")

// ErrSourceTooShort возвращается, когда извлечённый текст короче минимума.
// Текст совпадает с сообщением на проводе.
var ErrSourceTooShort = errors.New("Source content too short.")

// ErrUserExists возвращается при регистрации на занятый email.
var ErrUserExists = errors.New("пользователь уже существует")

// ErrUserNotFound возвращается, когда пользователь не найден.
var ErrUserNotFound = errors.New("пользователь не найден")

// ErrInvalidCredentials возвращается при неверной паре email/пароль.
var ErrInvalidCredentials = errors.New("неверные учётные данные")

// ErrProjectNotFound возвращается, когда проект не найден или чужой.
var ErrProjectNotFound = errors.New("проект не найден")

// ExtractionError — терминальная ошибка этапа извлечения
// (скачивание, транскрипция, скрейпинг, загрузка в хранилище).
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string { return e.Err.Error() }

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError — терминальная ошибка валидации извлечённого текста.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

// GenerationError — терминальная ошибка генерации черновика после
// исчерпания повторов либо при неповторяемом сбое.
type GenerationError struct {
	Platform string
	Err      error
}

func (e *GenerationError) Error() string { return e.Err.Error() }

func (e *GenerationError) Unwrap() error { return e.Err }

// PersistenceError — терминальная ошибка сохранения проекта.
type PersistenceError struct {
	Err error
}

func (e *PersistenceError) Error() string { return e.Err.Error() }

func (e *PersistenceError) Unwrap() error { return e.Err }
