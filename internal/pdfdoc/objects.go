package pdfdoc

import (
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
)

// resolve follows indirect references until a direct object is reached
func resolve(ctx *model.Context, o types.Object) (types.Object, error) {
	for i := 0; i < 32; i++ {
		ref, ok := o.(types.IndirectRef)
		if !ok {
			return o, nil
		}
		next, err := ctx.Dereference(ref)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve %d %d R: %w", ref.ObjectNumber, ref.GenerationNumber, err)
		}
		o = next
	}
	return nil, fmt.Errorf("reference chain too long")
}

func dictOf(ctx *model.Context, o types.Object) (types.Dict, error) {
	if o == nil {
		return nil, nil
	}
	v, err := resolve(ctx, o)
	if err != nil {
		return nil, err
	}
	switch d := v.(type) {
	case types.Dict:
		return d, nil
	case types.StreamDict:
		return d.Dict, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("expected dictionary, got %T", v)
}

func arrayOf(ctx *model.Context, o types.Object) (types.Array, error) {
	if o == nil {
		return nil, nil
	}
	v, err := resolve(ctx, o)
	if err != nil {
		return nil, err
	}
	switch a := v.(type) {
	case types.Array:
		return a, nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("expected array, got %T", v)
}

func numberOf(ctx *model.Context, o types.Object) (float64, bool) {
	v, err := resolve(ctx, o)
	if err != nil {
		return 0, false
	}
	switch n := v.(type) {
	case types.Integer:
		return float64(n), true
	case types.Float:
		return float64(n), true
	}
	return 0, false
}

func nameOf(ctx *model.Context, d types.Dict, key string) string {
	v, err := resolve(ctx, d[key])
	if err != nil {
		return ""
	}
	if n, ok := v.(types.Name); ok {
		return string(n)
	}
	return ""
}

func numbers(ctx *model.Context, o types.Object) ([]float64, error) {
	arr, err := arrayOf(ctx, o)
	if err != nil {
		return nil, err
	}
	out := make([]float64, 0, len(arr))
	for _, e := range arr {
		v, ok := numberOf(ctx, e)
		if !ok {
			return nil, fmt.Errorf("expected number, got %T", e)
		}
		out = append(out, v)
	}
	return out, nil
}

// boxOf reads a PDF rectangle array as a normalized user space Rect
func boxOf(ctx *model.Context, o types.Object) (geometry.Rect, bool) {
	vals, err := numbers(ctx, o)
	if err != nil || len(vals) != 4 {
		return geometry.Rect{}, false
	}
	return geometry.BoundingRect(
		geometry.Point{X: vals[0], Y: vals[1]},
		geometry.Point{X: vals[2], Y: vals[3]},
	), true
}

func matrixOf(ctx *model.Context, o types.Object) geometry.Matrix {
	vals, err := numbers(ctx, o)
	if err != nil || len(vals) != 6 {
		return geometry.Identity()
	}
	var m geometry.Matrix
	copy(m[:], vals)
	return m
}

func numberArray(vals ...float64) types.Array {
	arr := make(types.Array, len(vals))
	for i, v := range vals {
		if v == float64(int(v)) {
			arr[i] = types.Integer(int(v))
		} else {
			arr[i] = types.Float(v)
		}
	}
	return arr
}

func boxArray(r geometry.Rect) types.Array {
	return numberArray(r.X0, r.Y0, r.X1, r.Y1)
}

func matrixArray(m geometry.Matrix) types.Array {
	return numberArray(m[:]...)
}

// cloneObject copies direct dictionaries and arrays. References are kept, so
// the clone still points at the same indirect objects.
func cloneObject(o types.Object) types.Object {
	switch v := o.(type) {
	case types.Dict:
		out := make(types.Dict, len(v))
		for k, e := range v {
			out[k] = cloneObject(e)
		}
		return out
	case types.Array:
		out := make(types.Array, len(v))
		for i, e := range v {
			out[i] = cloneObject(e)
		}
		return out
	}
	return o
}

// ownedDict returns parent[key] as a direct dictionary that can be changed
// without touching other users of a shared object. A missing entry is
// created.
func ownedDict(ctx *model.Context, parent types.Dict, key string) (types.Dict, error) {
	o, found := parent[key]
	if !found || o == nil {
		d := types.Dict{}
		parent[key] = d
		return d, nil
	}
	d, err := dictOf(ctx, o)
	if err != nil {
		return nil, err
	}
	if d == nil {
		d = types.Dict{}
		parent[key] = d
		return d, nil
	}
	if _, indirect := o.(types.IndirectRef); indirect {
		owned := cloneObject(d).(types.Dict)
		parent[key] = owned
		return owned, nil
	}
	return d, nil
}

// uniqueName stores obj in dict under the first free name prefix<n>
func uniqueName(dict types.Dict, prefix string, seq *int, obj types.Object) string {
	for {
		*seq++
		name := fmt.Sprintf("%s%d", prefix, *seq)
		if _, taken := dict[name]; !taken {
			dict[name] = obj
			return name
		}
	}
}

// streamContent returns the decoded bytes of a stream
func streamContent(sd types.StreamDict) ([]byte, error) {
	if sd.Content != nil {
		return sd.Content, nil
	}
	if err := sd.Decode(); err != nil {
		return nil, fmt.Errorf("failed to decode stream: %w", err)
	}
	return sd.Content, nil
}

// newStream adds a Flate encoded stream with the given dictionary entries
func newStream(ctx *model.Context, content []byte, entries types.Dict) (types.IndirectRef, error) {
	sd, err := ctx.NewStreamDictForBuf(content)
	if err != nil {
		return types.IndirectRef{}, fmt.Errorf("failed to create stream: %w", err)
	}
	for k, v := range entries {
		sd.Dict[k] = v
	}
	if err := sd.Encode(); err != nil {
		return types.IndirectRef{}, fmt.Errorf("failed to encode stream: %w", err)
	}
	ref, err := ctx.IndRefForNewObject(*sd)
	if err != nil {
		return types.IndirectRef{}, fmt.Errorf("failed to add stream: %w", err)
	}
	return *ref, nil
}

func matrixOp(m geometry.Matrix) string {
	parts := make([]string, 6)
	for i, v := range m {
		parts[i] = num(v)
	}
	return strings.Join(parts, " ") + " cm"
}
