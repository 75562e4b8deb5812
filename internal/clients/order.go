package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type compraDetalle struct {
	ProductoID flexID `json:"productoId"`
	Nombre     string `json:"nombre"`
	Cantidad   int    `json:"cantidad"`
	Precio     int64  `json:"precio"`
	Subtotal   int64  `json:"subtotal"`
}

type compraCliente struct {
	Nombre    string `json:"nombre"`
	Apellidos string `json:"apellidos"`
	Correo    string `json:"correo"`
}

type compraRequest struct {
	Usuario          idRef         `json:"usuario"`
	Envio            idRef         `json:"envio"`
	Cliente          compraCliente `json:"cliente"`
	Subtotal         int64         `json:"subtotal"`
	IVA              int64         `json:"iva"`
	Total            int64         `json:"total"`
	DetalleProductos string        `json:"detalleProductos"`
	IdempotencyKey   string        `json:"idempotencyKey"`
}

type compraResponse struct {
	ID          flexID `json:"id"`
	Estado      string `json:"estado"`
	FechaCompra string `json:"fechaCompra"`
}

// OrderClient submits purchases.
type OrderClient struct {
	c *Client
}

func NewOrderClient(c *Client) *OrderClient {
	return &OrderClient{c: c}
}

func (o *OrderClient) Submit(ctx context.Context, intent domain.OrderIntent) (*domain.OrderConfirmation, error) {
	req, err := newCompraRequest(intent)
	if err != nil {
		return nil, err
	}
	headers := http.Header{}
	headers.Set(HeaderIdempotencyKey, intent.IdempotencyKey)

	var res compraResponse
	if err := o.c.DoJSON(ctx, http.MethodPost, "/api/compras", req, &res, headers); err != nil {
		return nil, fmt.Errorf("failed to submit order: %w", err)
	}
	if res.ID == "" {
		return nil, errors.New("failed to submit order: response carried no id")
	}
	return &domain.OrderConfirmation{
		OrderID:     string(res.ID),
		Status:      res.Estado,
		SubmittedAt: parseBackendTime(res.FechaCompra),
	}, nil
}

func newCompraRequest(intent domain.OrderIntent) (compraRequest, error) {
	detalle := make([]compraDetalle, 0, len(intent.Lines))
	for _, l := range intent.Lines {
		detalle = append(detalle, compraDetalle{
			ProductoID: flexID(l.ProductID),
			Nombre:     l.Name,
			Cantidad:   l.Quantity,
			Precio:     l.UnitPrice,
			Subtotal:   l.LineTotal,
		})
	}
	encoded, err := json.Marshal(detalle)
	if err != nil {
		return compraRequest{}, fmt.Errorf("failed to encode order lines: %w", err)
	}
	return compraRequest{
		Usuario: idRef{ID: flexID(intent.UserID)},
		Envio:   idRef{ID: flexID(intent.AddressID)},
		Cliente: compraCliente{
			Nombre:    intent.Customer.FirstName,
			Apellidos: intent.Customer.LastName,
			Correo:    intent.Customer.Email,
		},
		Subtotal:         intent.Totals.Subtotal,
		IVA:              intent.Totals.Tax,
		Total:            intent.Totals.Total,
		DetalleProductos: string(encoded),
		IdempotencyKey:   intent.IdempotencyKey,
	}, nil
}
