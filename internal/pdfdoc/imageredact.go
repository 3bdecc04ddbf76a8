package pdfdoc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"log/slog"
	"math"

	"github.com/pdfcpu/pdfcpu/pkg/filter"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"golang.org/x/image/draw"

	"github.com/lehigh-university-libraries/pdftoolkit/internal/document"
	"github.com/lehigh-university-libraries/pdftoolkit/internal/geometry"
)

var errImageFormat = errors.New("unsupported image format")

// pixelRegion is a block of image samples under one mask, rows counted from
// the top of the image
type pixelRegion struct {
	x0, y0, x1, y1 int
	fill           document.Color
}

// inline image abbreviations for keys and for name values
var (
	inlineKeys = map[string]string{
		"BPC": "BitsPerComponent",
		"CS":  "ColorSpace",
		"D":   "Decode",
		"DP":  "DecodeParms",
		"F":   "Filter",
		"H":   "Height",
		"IM":  "ImageMask",
		"I":   "Interpolate",
		"W":   "Width",
		"L":   "Length",
	}
	inlineNames = map[string]string{
		"G":    model.DeviceGrayCS,
		"RGB":  model.DeviceRGBCS,
		"CMYK": model.DeviceCMYKCS,
		"I":    "Indexed",
		"AHx":  filter.ASCIIHex,
		"A85":  filter.ASCII85,
		"LZW":  filter.LZW,
		"Fl":   filter.Flate,
		"RL":   filter.RunLength,
		"CCF":  filter.CCITTFax,
		"DCT":  filter.DCT,
	}
)

// paintImage handles an image drawn with the current matrix. Images outside
// every mask are kept, images a mask covers entirely are dropped and the
// rest are replaced by a copy whose samples under the masks are painted in
// the mask fill. An image that cannot be decoded is dropped.
func (f *contentFilter) paintImage(data []byte, op operation, label string, load func() (*types.StreamDict, error)) error {
	extent := f.gs.ctm.TransformRect(geometry.NewRect(0, 0, 1, 1))
	if !f.intersects(extent) {
		f.keep(data, op)
		return nil
	}

	if !f.covered(extent) {
		sd, err := load()
		var name string
		if err == nil {
			name, err = f.redactImage(sd)
		}
		switch {
		case err != nil:
			slog.Warn("Dropping image that cannot be redacted", "image", label, "err", err)
		case name == "":
			f.keep(data, op)
			return nil
		default:
			f.changed = true
			f.removed++
			fmt.Fprintf(&f.out, "/%s Do\n", name)
			return nil
		}
	}

	f.changed = true
	f.removed++
	return nil
}

// regions maps the masks into the sample grid of a w x h image
func (f *contentFilter) regions(w, h int) []pixelRegion {
	inv, ok := f.gs.ctm.Invert()
	if !ok {
		return nil
	}
	const eps = 1e-9
	clamp := func(v float64, hi int) int {
		return int(math.Max(0, math.Min(float64(hi), v)))
	}

	var out []pixelRegion
	for i, m := range f.masks {
		u := inv.TransformRect(m)
		r := pixelRegion{
			x0:   clamp(math.Floor(u.X0*float64(w)+eps), w),
			x1:   clamp(math.Ceil(u.X1*float64(w)-eps), w),
			y0:   clamp(math.Floor(float64(h)-u.Y1*float64(h)+eps), h),
			y1:   clamp(math.Ceil(float64(h)-u.Y0*float64(h)-eps), h),
			fill: document.Black,
		}
		if i < len(f.fills) {
			r.fill = f.fills[i]
		}
		if r.x0 < r.x1 && r.y0 < r.y1 {
			out = append(out, r)
		}
	}
	return out
}

// redactImage registers a copy of sd with the samples under the masks
// painted and returns its resource name, or "" when no sample changed.
func (f *contentFilter) redactImage(sd *types.StreamDict) (string, error) {
	ctx := f.doc.ctx
	fw, okW := numberOf(ctx, sd.Dict["Width"])
	fh, okH := numberOf(ctx, sd.Dict["Height"])
	if !okW || !okH || fw < 1 || fh < 1 {
		return "", fmt.Errorf("%w: missing size", errImageFormat)
	}
	w, h := int(fw), int(fh)
	regions := f.regions(w, h)
	if len(regions) == 0 {
		return "", nil
	}

	for _, pf := range sd.FilterPipeline {
		switch pf.Name {
		case filter.DCT:
			if len(sd.FilterPipeline) == 1 {
				return f.redactJPEG(sd, w, h, regions)
			}
			return "", fmt.Errorf("%w: chained %s", errImageFormat, pf.Name)
		case filter.JPX, filter.JBIG2:
			return "", fmt.Errorf("%w: %s", errImageFormat, pf.Name)
		}
	}

	mask := imageMask(ctx, sd.Dict)
	bpc := 1
	if !mask {
		bpc = 8
		if v, ok := numberOf(ctx, sd.Dict["BitsPerComponent"]); ok {
			bpc = int(v)
		}
	}
	switch bpc {
	case 1, 2, 4, 8, 16:
	default:
		return "", fmt.Errorf("%w: %d bits per component", errImageFormat, bpc)
	}

	values := make([][]uint32, len(regions))
	for i, r := range regions {
		v, err := f.sampleValues(sd.Dict, bpc, r.fill)
		if err != nil {
			return "", err
		}
		values[i] = v
	}
	n := len(values[0])

	raw, err := streamContent(*sd)
	if err != nil {
		return "", err
	}
	stride := (w*n*bpc + 7) / 8
	if len(raw) < stride*h {
		return "", fmt.Errorf("%w: %d bytes of samples, want %d", errImageFormat, len(raw), stride*h)
	}
	samples := append([]byte(nil), raw[:stride*h]...)

	changed := false
	for i, r := range regions {
		if paintSamples(samples, stride, bpc, n, r, values[i]) {
			changed = true
		}
	}
	if !changed {
		return "", nil
	}

	entries := types.Dict{}
	for k, v := range sd.Dict {
		switch k {
		case "Length", "Filter", "DecodeParms":
			continue
		}
		entries[k] = v
	}
	ref, err := newStream(ctx, samples, entries)
	if err != nil {
		return "", err
	}
	return f.registerImage(ref)
}

// redactJPEG decodes a DCT image and replaces it with a Flate encoded copy
func (f *contentFilter) redactJPEG(sd *types.StreamDict, w, h int, regions []pixelRegion) (string, error) {
	img, err := jpeg.Decode(bytes.NewReader(sd.Raw))
	if err != nil {
		return "", fmt.Errorf("failed to decode jpeg: %w", err)
	}
	b := img.Bounds()
	if b.Dx() != w || b.Dy() != h {
		return "", fmt.Errorf("%w: jpeg is %dx%d, dictionary says %dx%d", errImageFormat, b.Dx(), b.Dy(), w, h)
	}

	var samples []byte
	cs := model.DeviceRGBCS
	switch m := img.(type) {
	case *image.Gray:
		cs = model.DeviceGrayCS
		samples = make([]byte, 0, w*h)
		for y := 0; y < h; y++ {
			samples = append(samples, m.Pix[y*m.Stride:y*m.Stride+w]...)
		}
	case *image.CMYK:
		return "", fmt.Errorf("%w: CMYK jpeg", errImageFormat)
	default:
		rgba := image.NewRGBA(image.Rect(0, 0, w, h))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
		samples = make([]byte, 0, w*h*3)
		for i := 0; i < len(rgba.Pix); i += 4 {
			samples = append(samples, rgba.Pix[i:i+3]...)
		}
	}

	n := 3
	if cs == model.DeviceGrayCS {
		n = 1
	}
	plain := types.Dict{"ColorSpace": types.Name(cs)}
	for _, r := range regions {
		v, err := f.sampleValues(plain, 8, r.fill)
		if err != nil {
			return "", err
		}
		paintSamples(samples, w*n, 8, n, r, v)
	}

	out, err := model.CreateFlateImageStreamDict(f.doc.ctx.XRefTable, samples, nil, w, h, 8, cs)
	if err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	for _, k := range []string{"SMask", "Mask", "Intent"} {
		if v, ok := sd.Dict[k]; ok {
			out.Dict[k] = v
		}
	}
	ref, err := f.doc.ctx.IndRefForNewObject(*out)
	if err != nil {
		return "", fmt.Errorf("failed to add image: %w", err)
	}
	return f.registerImage(*ref)
}

func (f *contentFilter) registerImage(ref types.IndirectRef) (string, error) {
	xobjects, err := ownedDict(f.doc.ctx, f.res, "XObject")
	if err != nil {
		return "", err
	}
	return uniqueName(xobjects, "PTI", &f.doc.seq, ref), nil
}

func imageMask(ctx *model.Context, d types.Dict) bool {
	o, err := resolve(ctx, d["ImageMask"])
	if err != nil {
		return false
	}
	b, ok := o.(types.Boolean)
	return ok && bool(b)
}

// sampleValues returns the samples that paint fill in the color space of
// the image dictionary d, with its Decode array applied. Stencil masks get
// the sample that leaves the page unpainted.
func (f *contentFilter) sampleValues(d types.Dict, bpc int, fill document.Color) ([]uint32, error) {
	ctx := f.doc.ctx
	decode, _ := numbers(ctx, d["Decode"])
	if imageMask(ctx, d) {
		if len(decode) == 2 && decode[0] == 1 {
			return []uint32{0}, nil
		}
		return []uint32{1}, nil
	}

	comps, err := f.colorComponents(d["ColorSpace"], fill)
	if err != nil {
		return nil, err
	}
	top := float64(uint32(1)<<bpc - 1)
	out := make([]uint32, len(comps))
	for k, c := range comps {
		lo, hi := 0.0, 1.0
		if len(decode) >= 2*len(comps) {
			lo, hi = decode[2*k], decode[2*k+1]
		}
		s := 0.0
		if hi != lo {
			s = (c - lo) / (hi - lo)
		}
		out[k] = uint32(math.Round(math.Max(0, math.Min(1, s)) * top))
	}
	return out, nil
}

// colorComponents expresses fill in the color space cs
func (f *contentFilter) colorComponents(cs types.Object, fill document.Color) ([]float64, error) {
	o, err := resolve(f.doc.ctx, cs)
	if err != nil {
		return nil, err
	}
	family, n := "", 0
	switch v := o.(type) {
	case types.Name:
		family = string(v)
	case types.Array:
		if len(v) == 0 {
			break
		}
		if name, ok := v[0].(types.Name); ok {
			family = string(name)
		}
		if family == "ICCBased" && len(v) > 1 {
			if sd, err := resolve(f.doc.ctx, v[1]); err == nil {
				if s, ok := sd.(types.StreamDict); ok {
					if nv, ok := numberOf(f.doc.ctx, s.Dict["N"]); ok {
						n = int(nv)
					}
				}
			}
		}
	}

	switch {
	case family == model.DeviceGrayCS || family == "CalGray" || n == 1:
		return []float64{0.299*fill.R + 0.587*fill.G + 0.114*fill.B}, nil
	case family == model.DeviceRGBCS || family == "CalRGB" || n == 3:
		return []float64{fill.R, fill.G, fill.B}, nil
	case family == model.DeviceCMYKCS || n == 4:
		k := 1 - math.Max(fill.R, math.Max(fill.G, fill.B))
		if k >= 1 {
			return []float64{0, 0, 0, 1}, nil
		}
		return []float64{
			(1 - fill.R - k) / (1 - k),
			(1 - fill.G - k) / (1 - k),
			(1 - fill.B - k) / (1 - k),
			k,
		}, nil
	}
	return nil, fmt.Errorf("%w: color space %v", errImageFormat, o)
}

// paintSamples sets every sample of r to values and reports whether any
// sample changed
func paintSamples(samples []byte, stride, bpc, n int, r pixelRegion, values []uint32) bool {
	changed := false
	for y := r.y0; y < r.y1; y++ {
		row := samples[y*stride : (y+1)*stride]
		for x := r.x0; x < r.x1; x++ {
			for k, v := range values {
				if setSample(row, x*n+k, bpc, v) {
					changed = true
				}
			}
		}
	}
	return changed
}

func setSample(row []byte, i, bpc int, v uint32) bool {
	switch bpc {
	case 8:
		old := row[i]
		row[i] = byte(v)
		return old != row[i]
	case 16:
		old := uint32(row[2*i])<<8 | uint32(row[2*i+1])
		row[2*i], row[2*i+1] = byte(v>>8), byte(v)
		return old != v
	}
	bit := i * bpc
	shift := uint(8 - bpc - bit%8)
	mask := byte(1<<bpc-1) << shift
	old := row[bit/8]
	row[bit/8] = old&^mask | byte(v)<<shift&mask
	return old != row[bit/8]
}

// inlineImage turns a BI ... ID ... EI operation into an image stream
func (f *contentFilter) inlineImage(data []byte, op operation) (*types.StreamDict, error) {
	raw := data[op.start:op.end]
	p := &contentParser{data: raw, pos: 2}
	var items []operand
	for {
		p.skipSpaceAndComments()
		if p.pos >= len(raw) {
			return nil, fmt.Errorf("inline image without ID")
		}
		c := raw[p.pos]
		if isRegular(c) && !isNumberStart(c) {
			word := p.readWord()
			if word == "ID" {
				p.pos++
				break
			}
			items = append(items, operand{kind: kindBool, str: []byte(word)})
			continue
		}
		a, err := p.readOperand()
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}

	d := types.Dict{"Type": types.Name("XObject"), "Subtype": types.Name("Image")}
	for i := 0; i+1 < len(items); i += 2 {
		key := string(items[i].str)
		if full, ok := inlineKeys[key]; ok {
			key = full
		}
		d[key] = f.inlineObject(key, items[i+1])
	}

	end := len(raw) - 2
	if end > p.pos && isSpace(raw[end-1]) {
		end--
	}
	sd := &types.StreamDict{Dict: d, Raw: raw[p.pos:end]}

	filters := d["Filter"]
	parms := d["DecodeParms"]
	switch v := filters.(type) {
	case types.Name:
		pdp, _ := parms.(types.Dict)
		sd.FilterPipeline = []types.PDFFilter{{Name: string(v), DecodeParms: pdp}}
	case types.Array:
		pa, _ := parms.(types.Array)
		for i, e := range v {
			name, ok := e.(types.Name)
			if !ok {
				return nil, fmt.Errorf("%w: filter %v", errImageFormat, e)
			}
			var pdp types.Dict
			if i < len(pa) {
				pdp, _ = pa[i].(types.Dict)
			}
			sd.FilterPipeline = append(sd.FilterPipeline, types.PDFFilter{Name: string(name), DecodeParms: pdp})
		}
	}
	return sd, nil
}

// inlineObject converts an inline image dictionary value, expanding
// abbreviated names and color spaces named in the resources
func (f *contentFilter) inlineObject(key string, a operand) types.Object {
	switch a.kind {
	case kindNumber:
		if a.num == math.Trunc(a.num) {
			return types.Integer(int(a.num))
		}
		return types.Float(a.num)
	case kindBool:
		return types.Boolean(string(a.str) == "true")
	case kindName:
		name := string(a.str)
		if full, ok := inlineNames[name]; ok && (key == "ColorSpace" || key == "Filter") {
			return types.Name(full)
		}
		if key == "ColorSpace" {
			if spaces, err := dictOf(f.doc.ctx, f.res["ColorSpace"]); err == nil && spaces != nil {
				if cs, ok := spaces[name]; ok {
					return cs
				}
			}
		}
		return types.Name(name)
	case kindString:
		return types.StringLiteral(string(a.str))
	case kindArray:
		arr := make(types.Array, len(a.items))
		for i, it := range a.items {
			arr[i] = f.inlineObject(key, it)
		}
		return arr
	case kindDict:
		d := types.Dict{}
		for i := 0; i+1 < len(a.items); i += 2 {
			d[string(a.items[i].str)] = f.inlineObject("", a.items[i+1])
		}
		return d
	}
	return nil
}
