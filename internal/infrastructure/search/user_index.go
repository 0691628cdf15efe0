// Package search keeps an Elasticsearch copy of the users table for free-text lookup.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/oksasatya/go-users-api/internal/domain/entity"
)

const requestTimeout = 3 * time.Second

type userDoc struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// UserIndex is safe to use as a nil pointer; every call is then a no-op.
type UserIndex struct {
	ES    *elasticsearch.Client
	Index string
}

func NewUserIndex(es *elasticsearch.Client, index string) *UserIndex {
	return &UserIndex{ES: es, Index: index}
}

func (x *UserIndex) enabled() bool {
	return x != nil && x.ES != nil && x.Index != ""
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "id":    {"type": "long"},
      "name":  {"type": "text"},
      "email": {"type": "text", "fields": {"raw": {"type": "keyword"}}},
      "role":  {"type": "text", "fields": {"raw": {"type": "keyword"}}}
    }
  }
}`

// EnsureIndex creates the index with its mapping when it does not exist yet.
func (x *UserIndex) EnsureIndex(ctx context.Context) error {
	if !x.enabled() {
		return nil
	}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Indices.Exists([]string{x.Index}, x.ES.Indices.Exists.WithContext(c))
	if err != nil {
		return err
	}
	_ = res.Body.Close()
	switch res.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusNotFound:
	default:
		return fmt.Errorf("es index exists %s: %s", x.Index, res.Status())
	}

	res, err = x.ES.Indices.Create(x.Index,
		x.ES.Indices.Create.WithContext(c),
		x.ES.Indices.Create.WithBody(strings.NewReader(indexMapping)))
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	// A concurrent creator wins the race with a 400 resource_already_exists.
	if res.IsError() && res.StatusCode != http.StatusBadRequest {
		return fmt.Errorf("es create index %s: %s", x.Index, res.Status())
	}
	return nil
}

// Put indexes (or replaces) the document for u.
func (x *UserIndex) Put(ctx context.Context, u entity.User) error {
	if !x.enabled() {
		return nil
	}
	b, err := json.Marshal(userDoc{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role})
	if err != nil {
		return err
	}
	req := esapi.IndexRequest{Index: x.Index, DocumentID: docID(u.ID), Body: bytes.NewReader(b), Refresh: "false"}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() {
		return fmt.Errorf("es index %s: %s", docID(u.ID), res.Status())
	}
	return nil
}

// Remove deletes the document for id. A missing document is not an error.
func (x *UserIndex) Remove(ctx context.Context, id int64) error {
	if !x.enabled() {
		return nil
	}
	req := esapi.DeleteRequest{Index: x.Index, DocumentID: docID(id)}
	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()
	res, err := req.Do(c, x.ES)
	if err != nil {
		return err
	}
	defer func() { _ = res.Body.Close() }()
	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return fmt.Errorf("es delete %s: %s", docID(id), res.Status())
	}
	return nil
}

// Search runs a multi_match query over name, email and role.
func (x *UserIndex) Search(ctx context.Context, q string, size int) ([]entity.User, error) {
	if !x.enabled() {
		return []entity.User{}, nil
	}
	query := map[string]any{
		"query": map[string]any{
			"multi_match": map[string]any{
				"query":  q,
				"fields": []string{"email^2", "name", "role"},
			},
		},
		"size": size,
	}
	b, err := json.Marshal(query)
	if err != nil {
		return nil, err
	}

	c, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	res, err := x.ES.Search(x.ES.Search.WithContext(c), x.ES.Search.WithIndex(x.Index), x.ES.Search.WithBody(bytes.NewReader(b)))
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = res.Body.Close()
	}()
	if res.IsError() {
		return nil, fmt.Errorf("es search: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				Source userDoc `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	out := make([]entity.User, 0, len(parsed.Hits.Hits))
	for _, h := range parsed.Hits.Hits {
		out = append(out, entity.User{ID: h.Source.ID, Name: h.Source.Name, Email: h.Source.Email, Role: h.Source.Role})
	}
	return out, nil
}

func docID(id int64) string {
	return strconv.FormatInt(id, 10)
}
