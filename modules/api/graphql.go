package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"sync"
	"time"

	domain "github.com/example/task-service/domain/task"
	"github.com/example/task-service/modules/task"
	"github.com/graphql-go/graphql"
	"github.com/graphql-go/graphql/language/ast"
)

// errInternalFailure replaces every non-user error in resolver output.
var errInternalFailure = errors.New("internal error")

// failureRecorder collects the errors that must fail the whole request.
type failureRecorder struct {
	mu   sync.Mutex
	errs []error
}

type recorderKey struct{}

func withFailureRecorder(ctx context.Context) (context.Context, *failureRecorder) {
	rec := &failureRecorder{}
	return context.WithValue(ctx, recorderKey{}, rec), rec
}

func (r *failureRecorder) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// Err returns the recorded failures joined, or nil.
func (r *failureRecorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return errors.Join(r.errs...)
}

// resolverError lets validation and not-found errors through to the GraphQL
// errors list and records everything else.
func resolverError(ctx context.Context, err error) error {
	if domain.IsUserError(err) {
		return err
	}
	if rec, ok := ctx.Value(recorderKey{}).(*failureRecorder); ok {
		rec.record(err)
	}
	return errInternalFailure
}

type variablesKey struct{}

// withVariables keeps the decoded request variables so resolvers can tell a
// variable sent as null from one that was never sent.
func withVariables(ctx context.Context, vars map[string]interface{}) context.Context {
	return context.WithValue(ctx, variablesKey{}, vars)
}

// explicitNull reports whether the argument name was written in the document
// with a null value, either literally or through a variable sent as null.
func explicitNull(p graphql.ResolveParams, name string) bool {
	if v, ok := p.Args[name]; ok && v != nil {
		return false
	}
	for _, field := range p.Info.FieldASTs {
		for _, arg := range field.Arguments {
			if arg.Name == nil || arg.Name.Value != name {
				continue
			}
			variable, ok := arg.Value.(*ast.Variable)
			if !ok {
				return true
			}
			if variable.Name == nil {
				return false
			}
			vars, _ := p.Context.Value(variablesKey{}).(map[string]interface{})
			value, sent := vars[variable.Name.Value]
			return sent && value == nil
		}
	}
	return false
}

// Long is a 64-bit integer scalar carrying epoch milliseconds.
var Long = graphql.NewScalar(graphql.ScalarConfig{
	Name:        "Long",
	Description: "A 64-bit integer, used for epoch milliseconds.",
	Serialize:   coerceLong,
	ParseValue:  coerceLong,
	ParseLiteral: func(valueAST ast.Value) interface{} {
		v, ok := valueAST.(*ast.IntValue)
		if !ok {
			return nil
		}
		n, err := strconv.ParseInt(v.Value, 10, 64)
		if err != nil {
			return nil
		}
		return n
	},
})

func coerceLong(value interface{}) interface{} {
	switch v := value.(type) {
	case int64:
		return v
	case *int64:
		if v == nil {
			return nil
		}
		return *v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt64 || v < math.MinInt64 {
			return nil
		}
		return int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return nil
		}
		return n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil
		}
		return n
	default:
		return nil
	}
}

var priorityEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "TaskPriority",
	Values: graphql.EnumValueConfigMap{
		"LOW":    &graphql.EnumValueConfig{Value: domain.PriorityLow},
		"MEDIUM": &graphql.EnumValueConfig{Value: domain.PriorityMedium},
		"HIGH":   &graphql.EnumValueConfig{Value: domain.PriorityHigh},
	},
})

var statusEnum = graphql.NewEnum(graphql.EnumConfig{
	Name: "TaskStatus",
	Values: graphql.EnumValueConfigMap{
		"OPEN":     &graphql.EnumValueConfig{Value: domain.StatusOpen},
		"COMPLETE": &graphql.EnumValueConfig{Value: domain.StatusComplete},
		"TRASH":    &graphql.EnumValueConfig{Value: domain.StatusTrash},
	},
})

// taskField builds a field resolved from the *domain.Task source.
func taskField(typ graphql.Output, get func(t *domain.Task) interface{}) *graphql.Field {
	return &graphql.Field{
		Type: typ,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			t, ok := p.Source.(*domain.Task)
			if !ok || t == nil {
				return nil, nil
			}
			return get(t), nil
		},
	}
}

var taskType = graphql.NewObject(graphql.ObjectConfig{
	Name: "Task",
	Fields: graphql.Fields{
		"id": taskField(graphql.NewNonNull(graphql.ID), func(t *domain.Task) interface{} {
			return t.ID
		}),
		"title": taskField(graphql.NewNonNull(graphql.String), func(t *domain.Task) interface{} {
			return t.Title
		}),
		"description": taskField(graphql.String, func(t *domain.Task) interface{} {
			if t.Description == nil {
				return nil
			}
			return *t.Description
		}),
		"priority": taskField(graphql.NewNonNull(priorityEnum), func(t *domain.Task) interface{} {
			return t.Priority
		}),
		"status": taskField(graphql.NewNonNull(statusEnum), func(t *domain.Task) interface{} {
			return t.Status
		}),
		"createdAt": taskField(graphql.NewNonNull(Long), func(t *domain.Task) interface{} {
			return t.CreatedAt.UnixMilli()
		}),
		"reminderAt": taskField(Long, func(t *domain.Task) interface{} {
			if t.ReminderAt == nil {
				return nil
			}
			return t.ReminderAt.UnixMilli()
		}),
		"reminderAllDay": taskField(graphql.Boolean, func(t *domain.Task) interface{} {
			if t.ReminderAllDay == nil {
				return nil
			}
			return *t.ReminderAllDay
		}),
	},
})

// taskInputArgs are the optional task fields accepted by createTask and updateTask.
func taskInputArgs(extra graphql.FieldConfigArgument) graphql.FieldConfigArgument {
	args := graphql.FieldConfigArgument{
		"title":          &graphql.ArgumentConfig{Type: graphql.String},
		"description":    &graphql.ArgumentConfig{Type: graphql.String},
		"priority":       &graphql.ArgumentConfig{Type: priorityEnum},
		"status":         &graphql.ArgumentConfig{Type: statusEnum},
		"reminderAt":     &graphql.ArgumentConfig{Type: Long},
		"reminderAllDay": &graphql.ArgumentConfig{Type: graphql.Boolean},
	}
	for name, arg := range extra {
		args[name] = arg
	}
	return args
}

// inputFromArgs maps the arguments present in the document onto a task input.
// Absent and null arguments leave the field unset; updateTask additionally
// turns a null description into ClearDescription.
func inputFromArgs(args map[string]interface{}) domain.Input {
	var in domain.Input
	if v, ok := args["title"].(string); ok {
		in.Title = &v
	}
	if v, ok := args["description"].(string); ok {
		in.Description = &v
	}
	if v, ok := args["priority"].(domain.Priority); ok {
		in.Priority = &v
	}
	if v, ok := args["status"].(domain.Status); ok {
		in.Status = &v
	}
	if v, ok := args["reminderAt"].(int64); ok {
		at := time.UnixMilli(v).UTC()
		in.ReminderAt = &at
	}
	if v, ok := args["reminderAllDay"].(bool); ok {
		in.ReminderAllDay = &v
	}
	return in
}

// taskOrNil keeps a missing task an untyped nil so the field renders as null.
func taskOrNil(t *domain.Task) interface{} {
	if t == nil {
		return nil
	}
	return t
}

// NewSchema builds the task GraphQL schema on top of the task port.
func NewSchema(tasks task.TaskPort) (graphql.Schema, error) {
	query := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"getTask": &graphql.Field{
				Type: taskType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					t, err := tasks.GetTask(p.Context, id)
					if err != nil {
						return nil, resolverError(p.Context, err)
					}
					return taskOrNil(t), nil
				},
			},
			"findTasks": &graphql.Field{
				Type: graphql.NewNonNull(graphql.NewList(graphql.NewNonNull(taskType))),
				Args: graphql.FieldConfigArgument{
					"priority": &graphql.ArgumentConfig{Type: priorityEnum},
					"status":   &graphql.ArgumentConfig{Type: statusEnum},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var filter domain.Filter
					if v, ok := p.Args["priority"].(domain.Priority); ok {
						filter.Priority = &v
					}
					if v, ok := p.Args["status"].(domain.Status); ok {
						filter.Status = &v
					}

					found, err := tasks.FindTasks(p.Context, filter)
					if err != nil {
						return nil, resolverError(p.Context, err)
					}
					if found == nil {
						found = make([]*domain.Task, 0)
					}
					return found, nil
				},
			},
		},
	})

	mutation := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"createTask": &graphql.Field{
				Type: taskType,
				Args: taskInputArgs(graphql.FieldConfigArgument{
					"title": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					t, err := tasks.CreateTask(p.Context, inputFromArgs(p.Args))
					if err != nil {
						return nil, resolverError(p.Context, err)
					}
					return taskOrNil(t), nil
				},
			},
			"updateTask": &graphql.Field{
				Type: taskType,
				Args: taskInputArgs(graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				}),
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					in := inputFromArgs(p.Args)
					in.ClearDescription = explicitNull(p, "description")
					t, err := tasks.UpdateTask(p.Context, id, in)
					if err != nil {
						return nil, resolverError(p.Context, err)
					}
					return taskOrNil(t), nil
				},
			},
			"trashTask": &graphql.Field{
				Type: graphql.ID,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.ID)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id, _ := p.Args["id"].(string)
					trashed, err := tasks.TrashTask(p.Context, id)
					if err != nil {
						return nil, resolverError(p.Context, err)
					}
					return trashed, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    query,
		Mutation: mutation,
	})
}
