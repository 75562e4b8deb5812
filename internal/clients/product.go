package clients

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const productActive = "activo"

type producto struct {
	ID          flexID          `json:"id"`
	Nombre      string          `json:"nombre"`
	Descripcion string          `json:"descripcion"`
	Precio      decimal.Decimal `json:"precio"`
	Stock       int             `json:"stock"`
	Imagen      string          `json:"imagen"`
	Estado      string          `json:"estado"`
}

// ProductClient reads the public catalog.
type ProductClient struct {
	c *Client
}

func NewProductClient(c *Client) *ProductClient {
	return &ProductClient{c: c}
}

func (p *ProductClient) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	var res producto
	if err := p.c.DoJSON(ctx, http.MethodGet, "/api/productos/"+url.PathEscape(productID), nil, &res, nil); err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", productID, err)
	}
	id := string(res.ID)
	if id == "" {
		id = productID
	}
	return &domain.Product{
		ID:          id,
		Name:        res.Nombre,
		Description: res.Descripcion,
		ImageURL:    res.Imagen,
		Price:       res.Precio.Round(0).IntPart(),
		Stock:       max(res.Stock, 0),
		Active:      strings.EqualFold(strings.TrimSpace(res.Estado), productActive),
	}, nil
}
