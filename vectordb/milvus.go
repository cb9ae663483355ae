package vectordb

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"

	"github.com/DGMadMax/mcp-rbac/common/logger"
	"github.com/DGMadMax/mcp-rbac/config"
	"github.com/DGMadMax/mcp-rbac/schema"
)

const (
	fieldID         = "id"
	fieldContent    = "content"
	fieldDepartment = "department"
	fieldSource     = "source"
	fieldCreatedAt  = "created_at"
	fieldVector     = "vector"

	maxContentLength = 65535
)

type milvusProvider struct {
	client     client.Client
	collection string
	dim        int
}

func newMilvusProvider(ctx context.Context, cfg *config.VectorDBConfig, dim int) (*milvusProvider, error) {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	c, err := client.NewClient(ctx, client.Config{
		Address:  addr,
		Username: cfg.Username,
		Password: cfg.Password,
		DBName:   cfg.Database,
	})
	if err != nil {
		return nil, fmt.Errorf("connect milvus %s: %w", addr, err)
	}
	p := &milvusProvider{client: c, collection: cfg.Collection, dim: dim}
	if err := p.ensureCollection(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return p, nil
}

func (p *milvusProvider) ensureCollection(ctx context.Context) error {
	exists, err := p.client.HasCollection(ctx, p.collection)
	if err != nil {
		return fmt.Errorf("check collection %s: %w", p.collection, err)
	}
	if !exists {
		sch := entity.NewSchema().WithName(p.collection).
			WithField(entity.NewField().WithName(fieldID).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64).WithIsPrimaryKey(true)).
			WithField(entity.NewField().WithName(fieldContent).WithDataType(entity.FieldTypeVarChar).WithMaxLength(maxContentLength)).
			WithField(entity.NewField().WithName(fieldDepartment).WithDataType(entity.FieldTypeVarChar).WithMaxLength(64)).
			WithField(entity.NewField().WithName(fieldSource).WithDataType(entity.FieldTypeVarChar).WithMaxLength(256)).
			WithField(entity.NewField().WithName(fieldCreatedAt).WithDataType(entity.FieldTypeInt64)).
			WithField(entity.NewField().WithName(fieldVector).WithDataType(entity.FieldTypeFloatVector).WithDim(int64(p.dim)))
		if err := p.client.CreateCollection(ctx, sch, entity.DefaultShardNumber); err != nil {
			return fmt.Errorf("create collection %s: %w", p.collection, err)
		}
		idx, err := entity.NewIndexHNSW(entity.COSINE, 8, 64)
		if err != nil {
			return fmt.Errorf("build index params: %w", err)
		}
		if err := p.client.CreateIndex(ctx, p.collection, fieldVector, idx, false); err != nil {
			return fmt.Errorf("create index on %s: %w", p.collection, err)
		}
	}
	if err := p.client.LoadCollection(ctx, p.collection, false); err != nil {
		return fmt.Errorf("load collection %s: %w", p.collection, err)
	}
	return nil
}

func (p *milvusProvider) AddDocs(ctx context.Context, docs []schema.Document) error {
	if len(docs) == 0 {
		return nil
	}
	ids := make([]string, len(docs))
	contents := make([]string, len(docs))
	departments := make([]string, len(docs))
	sources := make([]string, len(docs))
	createdAts := make([]int64, len(docs))
	vectors := make([][]float32, len(docs))
	for i, d := range docs {
		if len(d.Vector) != p.dim {
			return fmt.Errorf("document %s vector dim %d, collection expects %d", d.ID, len(d.Vector), p.dim)
		}
		ids[i] = d.ID
		contents[i] = d.Content
		departments[i] = strings.ToLower(d.Department)
		sources[i] = d.Source
		if d.CreatedAt.IsZero() {
			createdAts[i] = time.Now().Unix()
		} else {
			createdAts[i] = d.CreatedAt.Unix()
		}
		vectors[i] = d.Vector
	}
	_, err := p.client.Insert(ctx, p.collection, "",
		entity.NewColumnVarChar(fieldID, ids),
		entity.NewColumnVarChar(fieldContent, contents),
		entity.NewColumnVarChar(fieldDepartment, departments),
		entity.NewColumnVarChar(fieldSource, sources),
		entity.NewColumnInt64(fieldCreatedAt, createdAts),
		entity.NewColumnFloatVector(fieldVector, p.dim, vectors),
	)
	if err != nil {
		return fmt.Errorf("insert %d docs: %w", len(docs), err)
	}
	return nil
}

// departmentExpr renders the access filter pushed down to the store.
func departmentExpr(departments []string) string {
	if len(departments) == 0 {
		return ""
	}
	quoted := make([]string, len(departments))
	for i, d := range departments {
		quoted[i] = fmt.Sprintf("%q", strings.ToLower(d))
	}
	return fmt.Sprintf("%s in [%s]", fieldDepartment, strings.Join(quoted, ", "))
}

func (p *milvusProvider) SearchDocs(ctx context.Context, vector []float32, opts *schema.SearchOptions) ([]schema.SearchResult, error) {
	topK := 10
	if opts != nil && opts.TopK > 0 {
		topK = opts.TopK
	}
	var expr string
	if opts != nil {
		expr = departmentExpr(opts.Departments)
	}
	sp, err := entity.NewIndexHNSWSearchParam(64)
	if err != nil {
		return nil, fmt.Errorf("build search params: %w", err)
	}
	fields := []string{fieldID, fieldContent, fieldDepartment, fieldSource, fieldCreatedAt}
	res, err := p.client.Search(ctx, p.collection, nil, expr, fields,
		[]entity.Vector{entity.FloatVector(vector)}, fieldVector, entity.COSINE, topK, sp)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", p.collection, err)
	}
	var out []schema.SearchResult
	for _, rs := range res {
		docs, err := columnsToDocuments(rs.Fields, rs.ResultCount)
		if err != nil {
			return nil, err
		}
		for i, doc := range docs {
			score := float64(rs.Scores[i])
			if opts != nil && opts.Threshold > 0 && score < opts.Threshold {
				continue
			}
			out = append(out, schema.SearchResult{Document: doc, Score: score, VectorScore: score})
		}
	}
	return out, nil
}

func (p *milvusProvider) ListDocs(ctx context.Context, department string) ([]schema.Document, error) {
	expr := fmt.Sprintf("%s != \"\"", fieldID)
	if department != "" {
		expr = departmentExpr([]string{department})
	}
	fields := []string{fieldID, fieldContent, fieldDepartment, fieldSource, fieldCreatedAt}
	rs, err := p.client.Query(ctx, p.collection, nil, expr, fields)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", p.collection, err)
	}
	n := 0
	if len(rs) > 0 {
		n = rs[0].Len()
	}
	return columnsToDocuments(rs, n)
}

func (p *milvusProvider) DeleteDocs(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	quoted := make([]string, len(ids))
	for i, id := range ids {
		quoted[i] = fmt.Sprintf("%q", id)
	}
	expr := fmt.Sprintf("%s in [%s]", fieldID, strings.Join(quoted, ", "))
	if err := p.client.Delete(ctx, p.collection, "", expr); err != nil {
		return fmt.Errorf("delete docs: %w", err)
	}
	return nil
}

func (p *milvusProvider) Close() error {
	if err := p.client.Close(); err != nil {
		logger.Warnf("milvus: close failed: %v", err)
		return err
	}
	return nil
}

func columnsToDocuments(cols []entity.Column, n int) ([]schema.Document, error) {
	byName := make(map[string]entity.Column, len(cols))
	for _, c := range cols {
		byName[c.Name()] = c
	}
	varchar := func(name string, i int) (string, error) {
		col, ok := byName[name]
		if !ok {
			return "", nil
		}
		vc, ok := col.(*entity.ColumnVarChar)
		if !ok {
			return "", fmt.Errorf("field %s has unexpected type %T", name, col)
		}
		return vc.ValueByIdx(i)
	}
	docs := make([]schema.Document, 0, n)
	for i := 0; i < n; i++ {
		id, err := varchar(fieldID, i)
		if err != nil {
			return nil, err
		}
		content, err := varchar(fieldContent, i)
		if err != nil {
			return nil, err
		}
		department, err := varchar(fieldDepartment, i)
		if err != nil {
			return nil, err
		}
		source, err := varchar(fieldSource, i)
		if err != nil {
			return nil, err
		}
		doc := schema.Document{ID: id, Content: content, Department: department, Source: source}
		if col, ok := byName[fieldCreatedAt].(*entity.ColumnInt64); ok {
			if ts, err := col.ValueByIdx(i); err == nil {
				doc.CreatedAt = time.Unix(ts, 0)
			}
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
