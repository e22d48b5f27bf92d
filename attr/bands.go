package attr

import (
	"fmt"

	"github.com/pack200go/unpack200/codec"
	"github.com/pack200go/unpack200/errs"
	"github.com/pack200go/unpack200/streamio"
)

// Value is one decoded slot of an attribute body: either a plain integer
// (Integral, Reference, Union tag) or a nested sub-structure (Replication
// produces a slice of per-iteration Values, Union produces the matched
// case's Values).
type Value struct {
	Int      int64
	Children []Value // set for Replication iterations and Union case bodies
}

// Context threads the state an evaluation needs that isn't local to one
// element: the codec registry for the enclosing band group and the
// resolved callable bodies a Call jumps to. Kept as an explicit struct
// rather than package-level state,
// so multiple segments can decode concurrently without interference.
type Context struct {
	Registry  *codec.Registry
	Callables []*LayoutElement // indexed by LayoutElement.CallableIndex
}

// NewContext collects every Callable node reachable from a parsed layout
// into a flat, index-addressable slice so Call elements can resolve in
// O(1).
func NewContext(reg *codec.Registry, elems []*LayoutElement) *Context {
	ctx := &Context{Registry: reg}
	var collect func([]*LayoutElement)
	collect = func(es []*LayoutElement) {
		for _, e := range es {
			switch e.Kind {
			case KindCallable:
				if e.CallableIndex >= len(ctx.Callables) {
					grown := make([]*LayoutElement, e.CallableIndex+1)
					copy(grown, ctx.Callables)
					ctx.Callables = grown
				}
				ctx.Callables[e.CallableIndex] = e
				collect(e.Body)
			case KindReplication:
				collect(e.Body)
			case KindUnion:
				for _, c := range e.Cases {
					collect(c.Body)
				}
				collect(e.Default)
			}
		}
	}
	collect(elems)

	return ctx
}

// DecodeSequence reads one instance of a parsed element sequence from r,
// using def as the default band codec for elements that don't specify a
// more precise one. Real Pack200 attribute band decoding interleaves many
// attribute instances column-by-column rather than row-by-row; the engine
// here decodes row-by-row for clarity, which is equivalent once all
// instances of a band are read back to back.
func (ctx *Context) DecodeSequence(elems []*LayoutElement, r *streamio.Reader, def codec.Codec) ([]Value, error) {
	out := make([]Value, 0, len(elems))
	for _, e := range elems {
		v, err := ctx.decodeElement(e, r, def)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}

	return out, nil
}

func (ctx *Context) decodeElement(e *LayoutElement, r *streamio.Reader, def codec.Codec) (Value, error) {
	switch e.Kind {
	case KindIntegral, KindReference:
		v, err := def.DecodeOne(r)
		if err != nil {
			return Value{}, err
		}

		return Value{Int: v}, nil

	case KindReplication:
		countVal, err := ctx.decodeElement(e.CountElem, r, def)
		if err != nil {
			return Value{}, err
		}
		n := int(countVal.Int)
		if n < 0 {
			return Value{}, fmt.Errorf("%w: negative replication count", errs.ErrBadLayout)
		}
		children := make([]Value, 0, n)
		for i := 0; i < n; i++ {
			body, err := ctx.DecodeSequence(e.Body, r, def)
			if err != nil {
				return Value{}, err
			}
			children = append(children, Value{Children: body})
		}

		return Value{Int: int64(n), Children: children}, nil

	case KindUnion:
		tagVal, err := ctx.decodeElement(e.TagElem, r, def)
		if err != nil {
			return Value{}, err
		}
		body := e.Default
		for _, c := range e.Cases {
			for _, t := range c.Tags {
				if t == tagVal.Int {
					body = c.Body

					break
				}
			}
		}
		children, err := ctx.DecodeSequence(body, r, def)
		if err != nil {
			return Value{}, err
		}

		return Value{Int: tagVal.Int, Children: children}, nil

	case KindCallable:
		return Value{}, nil // a Callable only matters as a Call target, not inline

	case KindCall:
		idx := e.CallRef
		if idx < 0 {
			idx = -idx
		}
		if idx >= len(ctx.Callables) || ctx.Callables[idx] == nil {
			return Value{}, fmt.Errorf("%w: %d", errs.ErrUnknownCallable, e.CallRef)
		}
		body, err := ctx.DecodeSequence(ctx.Callables[idx].Body, r, def)
		if err != nil {
			return Value{}, err
		}

		return Value{Children: body}, nil

	default:
		return Value{}, fmt.Errorf("%w: unhandled layout kind %d", errs.ErrBadLayout, e.Kind)
	}
}
