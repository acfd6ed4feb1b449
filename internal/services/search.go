package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"podreseller_back_end/internal/models"
)

const productsIndex = "products"

var ErrSearchDisabled = errors.New("search index is not configured")

// indexedProduct is the Elasticsearch source document. The identifier lives
// in the document id since _id cannot appear inside a source.
type indexedProduct struct {
	Category    string  `json:"category"`
	SellerName  string  `json:"sellerName"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
}

// ProductIndex keeps products searchable in Elasticsearch.
type ProductIndex struct {
	es *elasticsearch.Client
}

// NewProductIndex returns nil when es is nil; a nil index reports ErrSearchDisabled.
func NewProductIndex(es *elasticsearch.Client) *ProductIndex {
	if es == nil {
		return nil
	}
	return &ProductIndex{es: es}
}

func (i *ProductIndex) Index(ctx context.Context, p models.Product) error {
	if i == nil {
		return ErrSearchDisabled
	}

	data, err := json.Marshal(indexedProduct{
		Category:    p.Category,
		SellerName:  p.SellerName,
		Name:        p.Name,
		Price:       p.Price,
		Description: p.Description,
		Image:       p.Image,
	})
	if err != nil {
		return fmt.Errorf("encode product: %w", err)
	}

	req := esapi.IndexRequest{
		Index:      productsIndex,
		DocumentID: p.ID.Hex(),
		Body:       bytes.NewReader(data),
		Refresh:    "true",
	}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return fmt.Errorf("index product %s: %w", p.ID.Hex(), err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("index product %s: %s", p.ID.Hex(), res.String())
	}
	return nil
}

func (i *ProductIndex) Remove(ctx context.Context, id string) error {
	if i == nil {
		return ErrSearchDisabled
	}

	req := esapi.DeleteRequest{Index: productsIndex, DocumentID: id, Refresh: "true"}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return fmt.Errorf("remove product %s: %w", id, err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("remove product %s: %s", id, res.String())
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Source indexedProduct `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search runs a multi_match query over the text fields of a product.
func (i *ProductIndex) Search(ctx context.Context, query string) ([]models.Product, error) {
	if i == nil {
		return nil, ErrSearchDisabled
	}

	var buf bytes.Buffer
	q := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  query,
				"fields": []string{"name^2", "description", "category", "sellerName"},
			},
		},
	}
	if err := json.NewEncoder(&buf).Encode(q); err != nil {
		return nil, fmt.Errorf("encode search query: %w", err)
	}

	req := esapi.SearchRequest{Index: []string{productsIndex}, Body: &buf}
	res, err := req.Do(ctx, i.es)
	if err != nil {
		return nil, fmt.Errorf("search products: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("search products: %s", res.String())
	}

	var body searchResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	return hitsToProducts(body), nil
}

func hitsToProducts(body searchResponse) []models.Product {
	products := make([]models.Product, 0, len(body.Hits.Hits))
	for _, hit := range body.Hits.Hits {
		id, err := primitive.ObjectIDFromHex(hit.ID)
		if err != nil {
			continue
		}
		src := hit.Source
		products = append(products, models.Product{
			ID:          id,
			Category:    src.Category,
			SellerName:  src.SellerName,
			Name:        src.Name,
			Price:       src.Price,
			Description: src.Description,
			Image:       src.Image,
		})
	}
	return products
}
