package bridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonwraymond/ticketops/client"
	"github.com/jonwraymond/ticketops/observe"
)

// Operation names supported by a capability.
const (
	OpList      = "list"
	OpGet       = "get"
	OpCreate    = "create"
	OpUpdate    = "update"
	OpDelete    = "delete"
	OpAggregate = "aggregate"
)

var allOperations = []string{OpList, OpGet, OpCreate, OpUpdate, OpDelete, OpAggregate}

// Capability describes one table surfaced through the bridge.
type Capability struct {
	// Table is the logical table name, e.g. "incident".
	Table string

	// Label is a human-readable description used in registrations.
	Label string

	// Enabled gates registration; disabled capabilities are skipped.
	Enabled bool

	// Operations restricts which operations are registered. Empty means all.
	Operations []string
}

// DefaultCapabilities returns the standard ITSM table set.
func DefaultCapabilities() []Capability {
	return []Capability{
		{Table: "incident", Label: "Incident records", Enabled: true},
		{Table: "change_request", Label: "Change requests", Enabled: true},
		{Table: "problem", Label: "Problem records", Enabled: true},
		{Table: "sc_request", Label: "Service catalog requests", Enabled: true},
		{Table: "sc_task", Label: "Service catalog tasks", Enabled: true},
		{Table: "kb_knowledge", Label: "Knowledge articles", Enabled: true, Operations: []string{OpList, OpGet, OpAggregate}},
	}
}

// RegisterAll binds every enabled capability into the registry.
//
// Registrations are isolated from each other: an error or panic from one
// entry is logged and the walk continues, so one bad capability never blocks
// the rest. The returned count is the number of handlers registered.
func RegisterAll(c *client.Client, registry Registry, capabilities []Capability, logger observe.Logger) (int, error) {
	if c == nil {
		return 0, ErrNilClient
	}
	if registry == nil {
		return 0, ErrNilRegistry
	}
	if logger == nil {
		logger = observe.NopLogger()
	}

	registered := 0
	for _, entry := range capabilities {
		if !entry.Enabled || entry.Table == "" {
			logger.Debug(context.Background(), "capability skipped",
				observe.Field{Key: "table", Value: entry.Table},
			)
			continue
		}

		ops := entry.Operations
		if len(ops) == 0 {
			ops = allOperations
		}

		for _, op := range ops {
			if err := registerOne(c, registry, entry, op); err != nil {
				logger.Error(context.Background(), "capability registration failed",
					observe.Field{Key: "table", Value: entry.Table},
					observe.Field{Key: "operation", Value: op},
					observe.Field{Key: "error", Value: err.Error()},
				)
				continue
			}
			registered++
		}
	}
	return registered, nil
}

// registerOne registers a single handler, converting panics into errors so
// the caller's walk survives a misbehaving registry.
func registerOne(c *client.Client, registry Registry, entry Capability, op string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("bridge: registration panic for %s.%s: %v", entry.Table, op, r)
		}
	}()

	handler, err := handlerFor(c, entry.Table, op)
	if err != nil {
		return err
	}
	return registry.Register(entry.Table+"."+op, entry.Label+" ("+op+")", handler)
}

func handlerFor(c *client.Client, table, op string) (Handler, error) {
	switch op {
	case OpList:
		return func(ctx context.Context, args map[string]any) (string, error) {
			records, err := c.Get(ctx, table, argParams(args))
			if err != nil {
				return "", err
			}
			return renderJSON(records)
		}, nil

	case OpGet:
		return func(ctx context.Context, args map[string]any) (string, error) {
			sysID, err := argString(args, "sys_id")
			if err != nil {
				return "", err
			}
			record, err := c.GetByID(ctx, table, sysID)
			if err != nil {
				return "", err
			}
			return renderJSON(record)
		}, nil

	case OpCreate:
		return func(ctx context.Context, args map[string]any) (string, error) {
			fields, err := argFields(args)
			if err != nil {
				return "", err
			}
			record, err := c.Create(ctx, table, fields)
			if err != nil {
				return "", err
			}
			return renderJSON(record)
		}, nil

	case OpUpdate:
		return func(ctx context.Context, args map[string]any) (string, error) {
			sysID, err := argString(args, "sys_id")
			if err != nil {
				return "", err
			}
			fields, err := argFields(args)
			if err != nil {
				return "", err
			}
			record, err := c.Update(ctx, table, sysID, fields)
			if err != nil {
				return "", err
			}
			return renderJSON(record)
		}, nil

	case OpDelete:
		return func(ctx context.Context, args map[string]any) (string, error) {
			sysID, err := argString(args, "sys_id")
			if err != nil {
				return "", err
			}
			if err := c.Delete(ctx, table, sysID); err != nil {
				return "", err
			}
			return fmt.Sprintf("deleted %s/%s", table, sysID), nil
		}, nil

	case OpAggregate:
		return func(ctx context.Context, args map[string]any) (string, error) {
			stats, err := c.Aggregate(ctx, table, argParams(args))
			if err != nil {
				return "", err
			}
			return renderJSON(stats)
		}, nil

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOperation, op)
	}
}

// argParams extracts query parameters from the "params" argument.
func argParams(args map[string]any) client.Params {
	raw, ok := args["params"].(map[string]any)
	if !ok {
		return nil
	}
	return client.Params(raw)
}

func argString(args map[string]any, key string) (string, error) {
	value, ok := args[key].(string)
	if !ok || value == "" {
		return "", fmt.Errorf("%w: %q", ErrMissingArgument, key)
	}
	return value, nil
}

func argFields(args map[string]any) (client.Record, error) {
	fields, ok := args["fields"].(map[string]any)
	if !ok || len(fields) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrMissingArgument, "fields")
	}
	return client.Record(fields), nil
}

func renderJSON(v any) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("bridge: encode result: %w", err)
	}
	return string(data), nil
}
