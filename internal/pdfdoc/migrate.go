package pdfdoc

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// migrator deep-copies objects from one pdfcpu context into another. Every
// source object is copied at most once, so shared resources stay shared in
// the destination.
type migrator struct {
	src  *model.Context
	dst  *model.Context
	refs map[int]types.IndirectRef
}

func newMigrator(src, dst *model.Context) *migrator {
	return &migrator{src: src, dst: dst, refs: map[int]types.IndirectRef{}}
}

// alias makes references to a source object resolve to dst
func (m *migrator) alias(src, dst types.IndirectRef) {
	m.refs[int(src.ObjectNumber)] = dst
}

func (m *migrator) copy(o types.Object) (types.Object, error) {
	switch v := o.(type) {
	case types.IndirectRef:
		return m.copyRef(v)
	case types.Dict:
		return m.copyDict(v, nil)
	case types.StreamDict:
		return m.copyStream(v)
	case types.Array:
		out := make(types.Array, len(v))
		for i, e := range v {
			c, err := m.copy(e)
			if err != nil {
				return nil, err
			}
			out[i] = c
		}
		return out, nil
	}
	return o, nil
}

func (m *migrator) copyRef(ref types.IndirectRef) (types.Object, error) {
	objNr := int(ref.ObjectNumber)
	if r, ok := m.refs[objNr]; ok {
		return r, nil
	}
	target, err := m.src.Dereference(ref)
	if err != nil {
		return nil, fmt.Errorf("failed to read object %d: %w", objNr, err)
	}
	if target == nil {
		return nil, nil
	}
	// pages that are not being copied are left out rather than pulled in
	// with all their content
	if d, ok := target.(types.Dict); ok && nameOf(m.src, d, "Type") == "Page" {
		return nil, nil
	}

	placeholder, err := m.dst.IndRefForNewObject(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate object: %w", err)
	}
	m.refs[objNr] = *placeholder

	copied, err := m.copy(target)
	if err != nil {
		return nil, err
	}
	entry, ok := m.dst.Table[int(placeholder.ObjectNumber)]
	if !ok {
		return nil, fmt.Errorf("allocated object %d missing", placeholder.ObjectNumber)
	}
	entry.Object = copied
	return *placeholder, nil
}

// copyDict copies d leaving out the keys in skip
func (m *migrator) copyDict(d types.Dict, skip map[string]bool) (types.Dict, error) {
	out := make(types.Dict, len(d))
	for k, e := range d {
		if skip[k] {
			continue
		}
		c, err := m.copy(e)
		if err != nil {
			return nil, fmt.Errorf("/%s: %w", k, err)
		}
		if c != nil {
			out[k] = c
		}
	}
	return out, nil
}

func (m *migrator) copyStream(sd types.StreamDict) (types.Object, error) {
	d, err := m.copyDict(sd.Dict, map[string]bool{"Length": true})
	if err != nil {
		return nil, err
	}
	out := sd
	out.Dict = d
	if out.Raw == nil {
		if len(out.FilterPipeline) == 0 {
			out.Raw = out.Content
		} else if err := out.Encode(); err != nil {
			return nil, fmt.Errorf("failed to encode stream: %w", err)
		}
	}
	n := int64(len(out.Raw))
	out.StreamLength = &n
	out.StreamLengthObjNr = nil
	out.Dict["Length"] = types.Integer(n)
	return out, nil
}
