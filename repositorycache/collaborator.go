package repositorycache

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"

	repository "github.com/goliatone/go-repository-bun"

	"github.com/goliatone/go-model-cache/cache"
)

// Read methods routed through the cache.
const (
	methodGet             = "Get"
	methodGetByID         = "GetByID"
	methodList            = "List"
	methodCount           = "Count"
	methodGetByIdentifier = "GetByIdentifier"
)

// listResult wraps the tuple result from List operations for caching
type listResult[T any] struct {
	Records []T `json:"records"`
	Total   int `json:"total"`
}

// repositoryCollaborator exposes the read side of a repository as a cache collaborator.
type repositoryCollaborator[T any] struct {
	name string
	base repository.Repository[T]
}

func (r *repositoryCollaborator[T]) Name() string { return r.name }

func (r *repositoryCollaborator[T]) HasMethod(method string) bool {
	switch method {
	case methodGet, methodGetByID, methodList, methodCount, methodGetByIdentifier:
		return true
	}
	return false
}

// Invoke expects args laid out as the cached read methods pass them:
// an optional leading id or identifier followed by the criteria slice.
func (r *repositoryCollaborator[T]) Invoke(ctx context.Context, method string, args []any) (any, error) {
	switch method {
	case methodGet:
		return r.base.Get(ctx, selectCriteria(args, 0)...)
	case methodGetByID:
		return r.base.GetByID(ctx, stringArg(args, 0), selectCriteria(args, 1)...)
	case methodGetByIdentifier:
		return r.base.GetByIdentifier(ctx, stringArg(args, 0), selectCriteria(args, 1)...)
	case methodCount:
		return r.base.Count(ctx, selectCriteria(args, 0)...)
	case methodList:
		records, total, err := r.base.List(ctx, selectCriteria(args, 0)...)
		if err != nil {
			return nil, err
		}
		return listResult[T]{Records: records, Total: total}, nil
	default:
		return nil, fmt.Errorf("%w: %s.%s", cache.ErrUnknownMethod, r.name, method)
	}
}

func (r *repositoryCollaborator[T]) FromJSON(data json.RawMessage) (any, error) {
	var record T
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, err
	}
	return record, nil
}

func selectCriteria(args []any, i int) []repository.SelectCriteria {
	if i >= len(args) {
		return nil
	}
	criteria, _ := args[i].([]repository.SelectCriteria)
	return criteria
}

func stringArg(args []any, i int) string {
	if i >= len(args) {
		return ""
	}
	s, _ := args[i].(string)
	return s
}

// collaboratorName derives the cache namespace from T's type name.
func collaboratorName[T any]() string {
	typ := reflect.TypeOf((*T)(nil)).Elem()
	for typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	name := toSnake(typ.Name())
	if name == "" {
		name = toSnake(typ.String())
	}
	if name == "" {
		return "record"
	}
	return name
}
