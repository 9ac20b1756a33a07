package graphql

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/99designs/gqlgen/graphql"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

//go:embed schema.graphqls
var schemaSDL string

// ObjectResolver resolves one field of an object of a single GraphQL type.
// Lists are returned as []any.
type ObjectResolver func(ctx context.Context, obj any, field string, args map[string]any) (any, error)

// Executor runs read-only queries against the embedded schema. It implements
// graphql.ExecutableSchema so gqlgen's handler can serve it.
type Executor struct {
	schema    *ast.Schema
	resolvers map[string]ObjectResolver
}

var _ graphql.ExecutableSchema = (*Executor)(nil)

// NewExecutor loads the schema and checks that every object type has a resolver.
func NewExecutor(resolvers map[string]ObjectResolver) (*Executor, error) {
	schema, err := gqlparser.LoadSchema(&ast.Source{Name: "schema.graphqls", Input: schemaSDL})
	if err != nil {
		return nil, fmt.Errorf("failed to load graphql schema: %w", err)
	}
	for name, def := range schema.Types {
		if def.Kind != ast.Object || def.BuiltIn || strings.HasPrefix(name, "__") {
			continue
		}
		if _, ok := resolvers[name]; !ok {
			return nil, fmt.Errorf("no resolver for graphql type %s", name)
		}
	}
	return &Executor{schema: schema, resolvers: resolvers}, nil
}

// Schema exposes the parsed schema.
func (e *Executor) Schema() *ast.Schema {
	return e.schema
}

// Complexity leaves query cost unbounded; every field counts as its children.
func (e *Executor) Complexity(_ context.Context, _, _ string, childComplexity int, _ map[string]any) (int, bool) {
	return childComplexity, false
}

// Exec runs the operation parsed and validated by the gqlgen server.
func (e *Executor) Exec(ctx context.Context) graphql.ResponseHandler {
	opCtx := graphql.GetOperationContext(ctx)
	if opCtx.Operation.Operation != ast.Query {
		return graphql.OneShot(graphql.ErrorResponse(ctx, "only query operations are supported"))
	}

	first := true
	return func(ctx context.Context) *graphql.Response {
		if !first {
			return nil
		}
		first = false

		run := &execution{executor: e, opCtx: opCtx}
		data, ok := run.selectionSet(ctx, e.schema.Query.Name, nil, opCtx.Operation.SelectionSet, nil)
		if !ok {
			return &graphql.Response{Data: json.RawMessage("null")}
		}
		encoded, err := json.Marshal(data)
		if err != nil {
			log.Printf("[GRAPHQL] failed to encode response: %v", err)
			return graphql.ErrorResponse(ctx, "failed to encode response")
		}
		return &graphql.Response{Data: encoded}
	}
}

type execution struct {
	executor *Executor
	opCtx    *graphql.OperationContext
}

func (x *execution) addError(ctx context.Context, err error, path ast.Path) {
	graphql.AddError(ctx, &gqlerror.Error{Message: err.Error(), Path: path})
}

// selectionSet resolves the collected fields of one object. ok is false when a
// non-null field resolved to null, which nulls the object itself.
func (x *execution) selectionSet(ctx context.Context, typeName string, obj any, selections ast.SelectionSet, path ast.Path) (*object, bool) {
	fields := graphql.CollectFields(x.opCtx, selections, []string{typeName})
	out := &object{}
	for _, field := range fields {
		fieldPath := appendPath(path, ast.PathName(field.Alias))
		if field.Name == "__typename" {
			out.add(field.Alias, typeName)
			continue
		}
		if strings.HasPrefix(field.Name, "__") {
			x.addError(ctx, errors.New("introspection is not supported"), fieldPath)
			out.add(field.Alias, nil)
			continue
		}
		value, ok := x.field(ctx, typeName, obj, field, fieldPath)
		if !ok {
			return nil, false
		}
		out.add(field.Alias, value)
	}
	return out, true
}

func (x *execution) field(ctx context.Context, typeName string, obj any, field graphql.CollectedField, path ast.Path) (any, bool) {
	resolve := x.executor.resolvers[typeName]
	fc := &graphql.FieldContext{
		Object:     typeName,
		Field:      field,
		Args:       field.ArgumentMap(x.opCtx.Variables),
		IsMethod:   true,
		IsResolver: true,
	}
	ctx = graphql.WithFieldContext(ctx, fc)

	value, err := x.opCtx.ResolverMiddleware(ctx, func(rctx context.Context) (any, error) {
		return resolve(rctx, obj, field.Name, fc.Args)
	})
	fc.Result = value
	if err != nil {
		x.addError(ctx, err, path)
		return nil, !field.Definition.Type.NonNull
	}
	return x.complete(ctx, field.Definition.Type, field, value, path)
}

func (x *execution) complete(ctx context.Context, typ *ast.Type, field graphql.CollectedField, value any, path ast.Path) (any, bool) {
	if value == nil {
		if typ.NonNull {
			x.addError(ctx, fmt.Errorf("%s must not be null", field.Name), path)
			return nil, false
		}
		return nil, true
	}

	if typ.Elem != nil {
		items, ok := value.([]any)
		if !ok {
			x.addError(ctx, fmt.Errorf("%s resolved to a non-list value", field.Name), path)
			return nil, !typ.NonNull
		}
		return x.completeList(ctx, typ, field, items, path)
	}

	def := x.executor.schema.Types[typ.Name()]
	if def != nil && def.Kind == ast.Object {
		out, ok := x.selectionSet(ctx, def.Name, value, field.Selections, path)
		if !ok {
			return nil, !typ.NonNull
		}
		return out, true
	}
	return value, true
}

// completeList resolves object elements concurrently so per-request loaders
// can batch their lookups.
func (x *execution) completeList(ctx context.Context, typ *ast.Type, field graphql.CollectedField, items []any, path ast.Path) (any, bool) {
	out := make([]any, len(items))
	valid := make([]bool, len(items))

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item any) {
			defer wg.Done()
			itemCtx := graphql.WithFieldContext(ctx, &graphql.FieldContext{Index: &i, Result: item})
			out[i], valid[i] = x.complete(itemCtx, typ.Elem, field, item, appendPath(path, ast.PathIndex(i)))
		}(i, item)
	}
	wg.Wait()

	for _, ok := range valid {
		if !ok {
			return nil, !typ.NonNull
		}
	}
	return out, true
}

func appendPath(path ast.Path, element ast.PathElement) ast.Path {
	next := make(ast.Path, len(path), len(path)+1)
	copy(next, path)
	return append(next, element)
}

// object is a response map that keeps fields in selection order.
type object struct {
	keys   []string
	values []any
}

func (o *object) add(key string, value any) {
	o.keys = append(o.keys, key)
	o.values = append(o.values, value)
}

func (o *object) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		encodedKey, err := json.Marshal(key)
		if err != nil {
			return nil, err
		}
		buf.Write(encodedKey)
		buf.WriteByte(':')
		encodedValue, err := json.Marshal(o.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(encodedValue)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
