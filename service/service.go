// Package service holds the business rules behind every endpoint. Services
// are built once at startup with their stores injected and are safe for
// concurrent use.
package service

import (
	"context"
	"errors"

	"scanndine/apperr"
	"scanndine/realtime"
	"scanndine/repository"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// OrderNotifier receives every order placement and status change.
type OrderNotifier interface {
	NotifyOrder(ctx context.Context, event realtime.OrderEvent)
}

type nopNotifier struct{}

func (nopNotifier) NotifyOrder(context.Context, realtime.OrderEvent) {}

// Recorder counts domain events. *metrics.Metrics satisfies it.
type Recorder interface {
	OrderPlaced(guest bool)
	OrderStatusChanged(status string)
	StaffAction(action string)
}

type nopRecorder struct{}

func (nopRecorder) OrderPlaced(bool)          {}
func (nopRecorder) OrderStatusChanged(string) {}
func (nopRecorder) StaffAction(string)        {}

// notFound replaces a store miss with the given domain error and passes
// every other error through.
func notFound(err error, e *apperr.Error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return e
	}
	return err
}

func validEmail(email string) bool {
	return validate.Var(email, "required,email") == nil
}
