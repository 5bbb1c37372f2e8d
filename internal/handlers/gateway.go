package handlers

import (
	"context"

	"github.com/akylbek/payment-system/sheepy-gateway/internal/models"
	"github.com/akylbek/payment-system/sheepy-gateway/internal/service"
)

// PaymentGateway is the subset of *service.Gateway the HTTP handlers use.
type PaymentGateway interface {
	ProcessPayment(ctx context.Context, reference string) *service.PaymentResult
	HandleNotification(ctx context.Context, n *models.InboundNotification) error
	Order(ctx context.Context, reference string) (*models.Order, []models.OrderNote, error)
	Options(ctx context.Context) (models.GatewaySettings, error)
	OrderStatusOptions(ctx context.Context) ([]service.StatusOption, error)
	UpdateOrderStates(ctx context.Context, requested map[string]string) (models.StatusOverrides, error)
	Uninstall(ctx context.Context) error
}
