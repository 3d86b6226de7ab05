package wire

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"io"
	"math"
	"math/bits"
	"reflect"
)

// Unmarshal decodes data into dst, which must be a non-nil pointer. All input
// bytes must be consumed.
func Unmarshal(data []byte, dst interface{}) error {
	dstv := reflect.ValueOf(dst)
	if dstv.Kind() != reflect.Ptr || dstv.IsNil() {
		return ErrNonPointerTarget
	}

	buf := bytes.NewBuffer(data)
	d := decoder{Reader: buf}
	if err := d.unmarshal(indirect(dstv)); err != nil {
		return err
	}
	if buf.Len() > 0 {
		return ErrTrailingBytes
	}
	return nil
}

// NewDecoder decodes successive values from r; unlike Unmarshal it does not
// require the reader to be exhausted.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{decoder{Reader: r}}
}

type Decoder struct {
	decoder
}

func (d *Decoder) Decode(dst any) error {
	dstv := reflect.ValueOf(dst)
	if dstv.Kind() != reflect.Ptr || dstv.IsNil() {
		return ErrNonPointerTarget
	}
	return d.unmarshal(indirect(dstv))
}

type decoder struct {
	io.Reader
}

func (d *decoder) unmarshal(value reflect.Value) error {
	if value.CanAddr() {
		if u, ok := value.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalWire(d.Reader)
		}
	}

	switch value.Interface().(type) {
	case int, uint:
		return d.decodeNatural(value)
	case uint8:
		return d.decodeFixed(value, 1)
	case uint16:
		return d.decodeFixed(value, 2)
	case uint32:
		return d.decodeFixed(value, 4)
	case uint64:
		return d.decodeFixed(value, 8)
	case []byte:
		return d.decodeBytes(value)
	case string:
		return d.decodeString(value)
	case bool:
		return d.decodeBool(value)
	default:
		return d.decodeReflected(value)
	}
}

func (d *decoder) decodeReflected(value reflect.Value) error {
	switch value.Kind() {
	case reflect.Bool:
		return d.decodeBool(value)
	case reflect.Uint, reflect.Int:
		return d.decodeNatural(value)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return d.decodeFixed(value, uintWidth(value.Kind()))
	case reflect.String:
		return d.decodeString(value)
	case reflect.Ptr:
		return d.decodePointer(value)
	case reflect.Struct:
		return d.decodeStruct(value)
	case reflect.Array:
		return d.decodeArray(value)
	case reflect.Slice:
		if value.Type() == reflect.TypeOf(ed25519.PublicKey{}) {
			return d.decodeEd25519PublicKey(value)
		}
		if value.Type().Elem().Kind() == reflect.Uint8 {
			return d.decodeBytes(value)
		}
		return d.decodeSlice(value)
	case reflect.Map:
		return d.decodeMap(value)
	default:
		return fmt.Errorf("wire: unsupported type %v", value.Type())
	}
}

func (d *decoder) readOctet() (byte, error) {
	var b [1]byte
	if _, err := io.ReadFull(d.Reader, b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

func (d *decoder) decodePointer(value reflect.Value) error {
	marker, err := d.readOctet()
	if err != nil {
		return err
	}
	switch marker {
	case 0x00:
		if !value.IsNil() {
			value.Set(reflect.Zero(value.Type()))
		}
		return nil
	case 0x01:
		if value.IsNil() {
			value.Set(reflect.New(value.Type().Elem()))
		}
		return d.unmarshal(value.Elem())
	default:
		return ErrInvalidPointerMarker
	}
}

func (d *decoder) decodeSlice(value reflect.Value) error {
	l, err := d.decodeLength()
	if err != nil {
		return err
	}
	elemType := value.Type().Elem()
	out := reflect.MakeSlice(value.Type(), 0, int(l))
	for i := uint64(0); i < l; i++ {
		elem := reflect.New(elemType).Elem()
		if err := d.unmarshal(elem); err != nil {
			return err
		}
		out = reflect.Append(out, elem)
	}
	value.Set(out)
	return nil
}

func (d *decoder) decodeArray(value reflect.Value) error {
	out := reflect.New(value.Type()).Elem()
	for i := 0; i < out.Len(); i++ {
		if err := d.unmarshal(out.Index(i)); err != nil {
			return err
		}
	}
	value.Set(out)
	return nil
}

func (d *decoder) decodeMap(value reflect.Value) error {
	mapType := value.Type()
	l, err := d.decodeLength()
	if err != nil {
		return fmt.Errorf("wire: decoding map length: %w", err)
	}
	out := reflect.MakeMapWithSize(mapType, int(l))
	for i := uint64(0); i < l; i++ {
		key := reflect.New(mapType.Key()).Elem()
		if err := d.unmarshal(key); err != nil {
			return fmt.Errorf("wire: decoding map key: %w", err)
		}
		elem := reflect.New(mapType.Elem()).Elem()
		if err := d.unmarshal(elem); err != nil {
			return fmt.Errorf("wire: decoding map value: %w", err)
		}
		out.SetMapIndex(key, elem)
	}
	value.Set(out)
	return nil
}

func (d *decoder) decodeEd25519PublicKey(value reflect.Value) error {
	pub := ed25519.PublicKey(make([]byte, ed25519.PublicKeySize))
	if _, err := io.ReadFull(d.Reader, pub); err != nil {
		return err
	}
	value.Set(reflect.ValueOf(pub))
	return nil
}

func (d *decoder) decodeStruct(value reflect.Value) error {
	t := value.Type()
	for i := 0; i < value.NumField(); i++ {
		field := value.Field(i)
		if !field.CanSet() {
			continue
		}
		if err := d.unmarshal(field); err != nil {
			return fmt.Errorf("wire: decoding field %s.%s: %w", t.Name(), t.Field(i).Name, err)
		}
	}
	return nil
}

func (d *decoder) decodeBool(value reflect.Value) error {
	octet, err := d.readOctet()
	if err != nil {
		return err
	}
	switch octet {
	case 0x00:
		value.SetBool(false)
	case 0x01:
		value.SetBool(true)
	default:
		return ErrInvalidBool
	}
	return nil
}

func (d *decoder) decodeNatural(value reflect.Value) error {
	prefix, err := d.readOctet()
	if err != nil {
		return fmt.Errorf("wire: reading natural prefix: %w", err)
	}

	l := uint8(bits.LeadingZeros8(^prefix))
	serialized := make([]byte, l+1)
	serialized[0] = prefix
	if _, err := io.ReadFull(d.Reader, serialized[1:]); err != nil {
		return fmt.Errorf("wire: reading natural payload: %w", err)
	}

	u, err := naturalFromPrefix(serialized, l)
	if err != nil {
		return err
	}
	value.Set(reflect.ValueOf(u).Convert(value.Type()))
	return nil
}

func (d *decoder) decodeLength() (uint64, error) {
	var l uint
	dstv := reflect.New(reflect.TypeOf(l)).Elem()
	if err := d.decodeNatural(dstv); err != nil {
		return 0, err
	}
	return uint64(dstv.Uint()), nil
}

func (d *decoder) decodeBytes(value reflect.Value) error {
	l, err := d.decodeLength()
	if err != nil {
		return err
	}
	if l > math.MaxUint32 {
		return fmt.Errorf("wire: byte slice length %d out of range", l)
	}
	b := make([]byte, l)
	if l > 0 {
		if _, err := io.ReadFull(d.Reader, b); err != nil {
			return err
		}
	}
	value.Set(reflect.ValueOf(b).Convert(value.Type()))
	return nil
}

func (d *decoder) decodeString(value reflect.Value) error {
	l, err := d.decodeLength()
	if err != nil {
		return err
	}
	if l > math.MaxUint32 {
		return fmt.Errorf("wire: string length %d out of range", l)
	}
	b := make([]byte, l)
	if l > 0 {
		if _, err := io.ReadFull(d.Reader, b); err != nil {
			return err
		}
	}
	value.SetString(string(b))
	return nil
}

func (d *decoder) decodeFixed(value reflect.Value, l uint) error {
	buf := make([]byte, l)
	if _, err := io.ReadFull(d.Reader, buf); err != nil {
		return fmt.Errorf("wire: reading fixed-width value: %w", err)
	}
	value.Set(reflect.ValueOf(fixedFrom(buf)).Convert(value.Type()))
	return nil
}

// indirect dereferences pointers, allocating as needed, until it reaches a
// non-pointer value.
func indirect(v reflect.Value) reflect.Value {
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		v = v.Elem()
	}
	return v
}
