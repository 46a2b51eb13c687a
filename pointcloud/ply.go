package pointcloud

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/chenzhekl/goply"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// PLYType is the encoding of the body of a ply file.
type PLYType int

const (
	// PLYBinary is binary_little_endian 1.0 with float32 coordinates.
	PLYBinary PLYType = iota
	// PLYAscii is ascii 1.0.
	PLYAscii
)

// ToPLY writes the coordinates of cloud as a ply vertex element with float x, y, z
// properties and nothing else.
func ToPLY(cloud PointCloud, out io.Writer, outputType PLYType) error {
	format := "binary_little_endian"
	if outputType == PLYAscii {
		format = "ascii"
	}
	if _, err := fmt.Fprintf(out, "ply\n"+
		"format %s 1.0\n"+
		"element vertex %d\n"+
		"property float x\n"+
		"property float y\n"+
		"property float z\n"+
		"end_header\n", format, cloud.Size()); err != nil {
		return err
	}

	var err error
	buf := make([]byte, 12)
	cloud.Iterate(func(_ int, p r3.Vector) bool {
		switch outputType {
		case PLYBinary:
			binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(p.X)))
			binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(p.Y)))
			binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(float32(p.Z)))
			_, err = out.Write(buf)
		case PLYAscii:
			_, err = fmt.Fprintf(out, "%s %s %s\n",
				strconv.FormatFloat(float64(float32(p.X)), 'g', -1, 32),
				strconv.FormatFloat(float64(float32(p.Y)), 'g', -1, 32),
				strconv.FormatFloat(float64(float32(p.Z)), 'g', -1, 32))
		}
		return err == nil
	})
	return err
}

// ReadPLY reads the x, y, z properties of the vertex element of a ply file. Ascii files
// are parsed with goply; binary little and big endian files are decoded here as goply
// only understands ascii.
func ReadPLY(inRaw io.Reader) (PointCloud, error) {
	in := bufio.NewReader(inRaw)
	header, err := readPLYHeader(in)
	if err != nil {
		return nil, err
	}
	if header.format == "ascii" {
		return readPLYAscii(io.MultiReader(bytes.NewReader(header.raw), in))
	}
	return readPLYBinary(in, header)
}

type plyProperty struct {
	name   string
	typ    string
	isList bool
}

type plyElement struct {
	name       string
	count      int
	properties []plyProperty
}

type plyHeader struct {
	format   string
	elements []plyElement
	raw      []byte
}

var plyTypeSizes = map[string]int{
	"char": 1, "int8": 1, "uchar": 1, "uint8": 1,
	"short": 2, "int16": 2, "ushort": 2, "uint16": 2,
	"int": 4, "int32": 4, "uint": 4, "uint32": 4,
	"float": 4, "float32": 4, "double": 8, "float64": 8,
}

func readPLYHeader(in *bufio.Reader) (plyHeader, error) {
	var header plyHeader
	var raw bytes.Buffer
	first := true
	for {
		line, err := in.ReadString('\n')
		raw.WriteString(line)
		if err != nil {
			return header, errors.Wrap(err, "error reading ply header")
		}
		tokens := strings.Fields(line)
		if first {
			if len(tokens) != 1 || tokens[0] != "ply" {
				return header, errors.New("missing ply magic")
			}
			first = false
			continue
		}
		if len(tokens) == 0 {
			continue
		}
		switch tokens[0] {
		case "format":
			if len(tokens) < 2 {
				return header, errors.Errorf("invalid ply format line %q", strings.TrimSpace(line))
			}
			switch tokens[1] {
			case "ascii", "binary_little_endian", "binary_big_endian":
				header.format = tokens[1]
			default:
				return header, errors.Errorf("unsupported ply format %q", tokens[1])
			}
		case "element":
			if len(tokens) != 3 {
				return header, errors.Errorf("invalid ply element line %q", strings.TrimSpace(line))
			}
			count, err := strconv.Atoi(tokens[2])
			if err != nil || count < 0 {
				return header, errors.Errorf("invalid ply element count %q", tokens[2])
			}
			header.elements = append(header.elements, plyElement{name: tokens[1], count: count})
		case "property":
			if len(header.elements) == 0 {
				return header, errors.New("ply property before any element")
			}
			elem := &header.elements[len(header.elements)-1]
			switch {
			case len(tokens) == 5 && tokens[1] == "list":
				elem.properties = append(elem.properties, plyProperty{name: tokens[4], typ: tokens[3], isList: true})
			case len(tokens) == 3:
				if _, ok := plyTypeSizes[tokens[1]]; !ok {
					return header, errors.Errorf("unsupported ply property type %q", tokens[1])
				}
				elem.properties = append(elem.properties, plyProperty{name: tokens[2], typ: tokens[1]})
			default:
				return header, errors.Errorf("invalid ply property line %q", strings.TrimSpace(line))
			}
		case "comment", "obj_info":
		case "end_header":
			if header.format == "" {
				return header, errors.New("ply header has no format line")
			}
			header.raw = raw.Bytes()
			return header, nil
		default:
			return header, errors.Errorf("invalid ply header token %q", tokens[0])
		}
	}
}

func readPLYAscii(in io.Reader) (cloud PointCloud, err error) {
	defer func() {
		if r := recover(); r != nil {
			cloud = nil
			err = errors.Errorf("invalid ascii ply: %v", r)
		}
	}()
	ply := goply.New(in)
	vertices := ply.Elements("vertex")
	points := make([]r3.Vector, len(vertices))
	for i, vertex := range vertices {
		var coords [3]float64
		for j, name := range []string{"x", "y", "z"} {
			value, ok := plyFloat(vertex.Property(name))
			if !ok {
				return nil, errors.Errorf("vertex %d has no numeric %s property", i, name)
			}
			coords[j] = value
		}
		points[i] = r3.Vector{X: coords[0], Y: coords[1], Z: coords[2]}
	}
	return New(points), nil
}

func plyFloat(v interface{}) (float64, bool) {
	switch v := v.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case int8:
		return float64(v), true
	case uint8:
		return float64(v), true
	case int16:
		return float64(v), true
	case uint16:
		return float64(v), true
	case int32:
		return float64(v), true
	case uint32:
		return float64(v), true
	default:
		return 0, false
	}
}

func readPLYBinary(in *bufio.Reader, header plyHeader) (PointCloud, error) {
	var order binary.ByteOrder = binary.LittleEndian
	if header.format == "binary_big_endian" {
		order = binary.BigEndian
	}
	for _, elem := range header.elements {
		if elem.name != "vertex" {
			if err := skipPLYElement(in, elem, order); err != nil {
				return nil, err
			}
			continue
		}
		found := map[string]bool{}
		for _, prop := range elem.properties {
			found[prop.name] = !prop.isList
		}
		if !found["x"] || !found["y"] || !found["z"] {
			return nil, errors.New("ply vertex element needs scalar x, y and z properties")
		}
		points := make([]r3.Vector, elem.count)
		for i := range points {
			for _, prop := range elem.properties {
				if prop.isList {
					return nil, errors.Errorf("list property %q on vertices is not supported", prop.name)
				}
				value, err := readPLYScalar(in, prop.typ, order)
				if err != nil {
					return nil, errors.Wrapf(err, "reading vertex %d", i)
				}
				switch prop.name {
				case "x":
					points[i].X = value
				case "y":
					points[i].Y = value
				case "z":
					points[i].Z = value
				}
			}
		}
		return New(points), nil
	}
	return nil, errors.New("ply file has no vertex element")
}

func skipPLYElement(in *bufio.Reader, elem plyElement, order binary.ByteOrder) error {
	for i := 0; i < elem.count; i++ {
		for _, prop := range elem.properties {
			if !prop.isList {
				if _, err := readPLYScalar(in, prop.typ, order); err != nil {
					return err
				}
				continue
			}
			// lists are only found after the vertices in the files we read; give up on them
			return errors.Errorf("cannot skip list property %q of element %q", prop.name, elem.name)
		}
	}
	return nil
}

func readPLYScalar(in io.Reader, typ string, order binary.ByteOrder) (float64, error) {
	size := plyTypeSizes[typ]
	var buf [8]byte
	if _, err := io.ReadFull(in, buf[:size]); err != nil {
		return 0, err
	}
	b := buf[:size]
	switch typ {
	case "char", "int8":
		return float64(int8(b[0])), nil
	case "uchar", "uint8":
		return float64(b[0]), nil
	case "short", "int16":
		return float64(int16(order.Uint16(b))), nil
	case "ushort", "uint16":
		return float64(order.Uint16(b)), nil
	case "int", "int32":
		return float64(int32(order.Uint32(b))), nil
	case "uint", "uint32":
		return float64(order.Uint32(b)), nil
	case "float", "float32":
		return float64(math.Float32frombits(order.Uint32(b))), nil
	default:
		return math.Float64frombits(order.Uint64(b)), nil
	}
}
