package security

import (
	"DBHooks/internal/core/event"
	"DBHooks/internal/core/ports"
	"context"
	"fmt"
	"strings"
)

// Rule selects the parameters to encrypt: positions (zero based) of every
// statement starting with Prefix, compared case-insensitively.
//
// Scope is bound to each sealed value. It defaults to the lower-cased
// prefix, so values written by one rule cannot be replayed into another.
type Rule struct {
	Prefix    string
	Positions []int
	Scope     string
}

func (r Rule) matches(stmt string) bool {
	s := strings.TrimSpace(stmt)
	return len(s) >= len(r.Prefix) && strings.EqualFold(s[:len(r.Prefix)], r.Prefix)
}

func (r Rule) scope() string {
	if r.Scope != "" {
		return r.Scope
	}
	return strings.ToLower(strings.TrimSpace(r.Prefix))
}

// Open decrypts a value stored under this rule.
func (r Rule) Open(c ports.Cipher, stored string) (string, error) {
	plain, err := c.Open(r.scope(), stored)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

// EncryptParams returns a before_cursor_execute listener, to be registered
// with event.WithRetval, that replaces selected string or []byte
// parameters with their sealed text. nil parameters stay nil, and values
// that are already sealed are left alone.
func EncryptParams(c ports.Cipher, rules ...Rule) event.Func {
	return func(ctx context.Context, args event.Args) (event.Args, error) {
		stmt, _ := args[2].(string)
		params := args[3]
		for _, r := range rules {
			if !r.matches(stmt) {
				continue
			}
			var err error
			if params, err = sealParams(c, r, params); err != nil {
				return nil, err
			}
		}
		return event.Args{args[2], params}, nil
	}
}

func sealParams(c ports.Cipher, r Rule, params any) (any, error) {
	switch p := params.(type) {
	case []any:
		return sealSet(c, r, p)
	case [][]any:
		out := make([][]any, len(p))
		for i, set := range p {
			sealed, err := sealSet(c, r, set)
			if err != nil {
				return nil, err
			}
			out[i] = sealed
		}
		return out, nil
	}
	return params, nil
}

func sealSet(c ports.Cipher, r Rule, set []any) ([]any, error) {
	out := append([]any(nil), set...)
	for _, pos := range r.Positions {
		if pos < 0 || pos >= len(out) {
			continue
		}
		var plain []byte
		switch v := out[pos].(type) {
		case nil:
			continue
		case string:
			if IsSealed(v) {
				continue
			}
			plain = []byte(v)
		case []byte:
			plain = v
		default:
			return nil, fmt.Errorf("cannot encrypt parameter %d of type %T", pos, v)
		}
		sealed, err := c.Seal(r.scope(), plain)
		if err != nil {
			return nil, err
		}
		out[pos] = sealed
	}
	return out, nil
}
