package main

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/r0busta/go-shopify-graphql-model/v4/graph/model"
)

// ErrorKind classifica os erros de domínio; o status HTTP é decidido por ele
type ErrorKind int

const (
	KindInternal ErrorKind = iota
	KindValidation
	KindNotFound
	KindInsufficientStock
	KindRemote
	KindMetafieldUpdate
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindInsufficientStock:
		return "insufficient_stock"
	case KindRemote:
		return "remote_communication"
	case KindMetafieldUpdate:
		return "metafield_update"
	default:
		return "internal"
	}
}

// StatusCode devolve o status HTTP associado ao tipo de erro
func (k ErrorKind) StatusCode() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientStock:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// StockError é o erro de domínio propagado até a borda HTTP
type StockError struct {
	Kind    ErrorKind
	Message string
	// UserErrors só é preenchido para KindMetafieldUpdate
	UserErrors []model.MetafieldsSetUserError
	Err        error
}

func (e *StockError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *StockError) Unwrap() error {
	return e.Err
}

func newValidationError(format string, args ...any) *StockError {
	return &StockError{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func newNotFoundError(format string, args ...any) *StockError {
	return &StockError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func newInsufficientStockError(current, decreaseBy int) *StockError {
	return &StockError{
		Kind:    KindInsufficientStock,
		Message: fmt.Sprintf("Insufficient stock (Current: %d) to decrease by %d.", current, decreaseBy),
	}
}

func newRemoteError(message string, err error) *StockError {
	return &StockError{Kind: KindRemote, Message: message, Err: err}
}

func newMetafieldUpdateError(userErrors []model.MetafieldsSetUserError) *StockError {
	return &StockError{
		Kind:       KindMetafieldUpdate,
		Message:    "Failed to update metafield",
		UserErrors: userErrors,
	}
}

// KindOf extrai o tipo de um erro; erros desconhecidos são KindInternal
func KindOf(err error) ErrorKind {
	var stockErr *StockError
	if errors.As(err, &stockErr) {
		return stockErr.Kind
	}
	return KindInternal
}
