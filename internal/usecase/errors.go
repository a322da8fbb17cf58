package usecase

import (
	"errors"
	"fmt"

	repo "smartcommerce/internal/repository"
)

// エラーの種類。errors.Isで判定する
var (
	ErrNotFound               = errors.New("not found")
	ErrInsufficientStock      = errors.New("insufficient stock")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrBusinessRule           = errors.New("business rule violation")
	ErrPersistence            = errors.New("persistence failure")
)

// usecaseが返すエラー。Kindは上の種類のどれか
type AppError struct {
	Kind    error
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func AsAppError(err error) (*AppError, bool) {
	var ae *AppError
	ok := errors.As(err, &ae)
	return ae, ok
}

func NewNotFound(format string, args ...any) error {
	return &AppError{Kind: ErrNotFound, Message: fmt.Sprintf(format, args...)}
}

func NewInsufficientStock(format string, args ...any) error {
	return &AppError{Kind: ErrInsufficientStock, Message: fmt.Sprintf(format, args...)}
}

func NewInvalidTransition(format string, args ...any) error {
	return &AppError{Kind: ErrInvalidStateTransition, Message: fmt.Sprintf(format, args...)}
}

func NewBusinessRule(format string, args ...any) error {
	return &AppError{Kind: ErrBusinessRule, Message: fmt.Sprintf(format, args...)}
}

func NewPersistence(err error) error {
	return &AppError{Kind: ErrPersistence, Message: "db error", Err: err}
}

// repositoryのErrNotFoundはNotFoundに、それ以外はPersistenceに変える
func fromRepo(err error, what string, id int64) error {
	if err == nil {
		return nil
	}
	if _, ok := AsAppError(err); ok {
		return err
	}
	if errors.Is(err, repo.ErrNotFound) {
		return NewNotFound("%s %d not found", what, id)
	}
	return NewPersistence(err)
}

// Tx全体のエラー。AppError以外（commit失敗など）はPersistence扱い
func txError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := AsAppError(err); ok {
		return err
	}
	return NewPersistence(err)
}
