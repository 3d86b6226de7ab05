package wire

import (
	"bytes"
	"crypto/ed25519"
	"fmt"
	"io"
	"reflect"
	"sort"
)

// Marshal encodes v under the rules documented in the package comment.
func Marshal(v interface{}) ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	ew := encoder{Writer: buf}
	if err := ew.marshal(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

type encoder struct {
	io.Writer
}

func (e *encoder) marshal(in interface{}) error {
	if m, ok := in.(Marshaler); ok {
		b, err := m.MarshalWire()
		if err != nil {
			return err
		}
		_, err = e.Write(b)
		return err
	}

	switch v := in.(type) {
	case int:
		return e.encodeNatural(uint64(v))
	case uint:
		return e.encodeNatural(uint64(v))
	case uint8:
		return e.encodeFixed(uint64(v), 1)
	case uint16:
		return e.encodeFixed(uint64(v), 2)
	case uint32:
		return e.encodeFixed(uint64(v), 4)
	case uint64:
		return e.encodeFixed(v, 8)
	case []byte:
		return e.encodeBytes(v)
	case string:
		return e.encodeBytes([]byte(v))
	case bool:
		return e.encodeBool(v)
	case ed25519.PublicKey:
		_, err := e.Write(v)
		return err
	default:
		return e.encodeReflected(v)
	}
}

func (e *encoder) encodeReflected(in interface{}) error {
	val := reflect.ValueOf(in)
	switch val.Kind() {
	case reflect.Bool:
		return e.encodeBool(val.Bool())
	case reflect.Uint, reflect.Int:
		return e.encodeNatural(val.Convert(reflect.TypeOf(uint64(0))).Uint())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return e.encodeFixed(val.Uint(), uintWidth(val.Kind()))
	case reflect.String:
		return e.encodeBytes([]byte(val.String()))
	case reflect.Ptr:
		if err := e.writePointerMarker(val.IsNil()); err != nil {
			return err
		}
		if val.IsNil() {
			return nil
		}
		return e.marshal(val.Elem().Interface())
	case reflect.Struct:
		return e.encodeStruct(val)
	case reflect.Array:
		for i := 0; i < val.Len(); i++ {
			if err := e.marshal(val.Index(i).Interface()); err != nil {
				return err
			}
		}
		return nil
	case reflect.Slice:
		if val.Type().Elem().Kind() == reflect.Uint8 {
			return e.encodeBytes(val.Bytes())
		}
		return e.encodeSlice(val)
	case reflect.Map:
		return e.encodeMap(val)
	default:
		return fmt.Errorf("wire: unsupported type %T", in)
	}
}

func uintWidth(k reflect.Kind) uint {
	switch k {
	case reflect.Uint8:
		return 1
	case reflect.Uint16:
		return 2
	case reflect.Uint32:
		return 4
	default:
		return 8
	}
}

func (e *encoder) encodeSlice(v reflect.Value) error {
	if err := e.encodeNatural(uint64(v.Len())); err != nil {
		return err
	}
	for i := 0; i < v.Len(); i++ {
		if err := e.marshal(v.Index(i).Interface()); err != nil {
			return err
		}
	}
	return nil
}

// encodeMap writes entries in ascending key order so that equal maps always
// produce equal bytes.
func (e *encoder) encodeMap(v reflect.Value) error {
	keys := v.MapKeys()
	if err := sortMapKeys(keys); err != nil {
		return err
	}
	if err := e.encodeNatural(uint64(len(keys))); err != nil {
		return err
	}
	for _, key := range keys {
		if err := e.marshal(key.Interface()); err != nil {
			return fmt.Errorf("wire: encoding map key: %w", err)
		}
		if err := e.marshal(v.MapIndex(key).Interface()); err != nil {
			return fmt.Errorf("wire: encoding map value: %w", err)
		}
	}
	return nil
}

func sortMapKeys(keys []reflect.Value) error {
	if len(keys) == 0 {
		return nil
	}
	switch keys[0].Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Uint() < keys[j].Uint() })
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		sort.Slice(keys, func(i, j int) bool { return keys[i].Int() < keys[j].Int() })
	case reflect.String:
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	case reflect.Array:
		if keys[0].Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("wire: unsupported map key array type %v", keys[0].Type())
		}
		sort.Slice(keys, func(i, j int) bool {
			return bytes.Compare(arrayToBytes(keys[i]), arrayToBytes(keys[j])) < 0
		})
	default:
		return fmt.Errorf("wire: unsupported map key kind %v", keys[0].Kind())
	}
	return nil
}

func arrayToBytes(v reflect.Value) []byte {
	b := make([]byte, v.Len())
	for i := 0; i < v.Len(); i++ {
		b[i] = byte(v.Index(i).Uint())
	}
	return b
}

func (e *encoder) encodeStruct(v reflect.Value) error {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		field := v.Field(i)
		if !field.CanInterface() {
			continue
		}
		if err := e.marshal(field.Interface()); err != nil {
			return fmt.Errorf("wire: encoding field %s.%s: %w", t.Name(), t.Field(i).Name, err)
		}
	}
	return nil
}

func (e *encoder) encodeBytes(b []byte) error {
	if err := e.encodeNatural(uint64(len(b))); err != nil {
		return err
	}
	_, err := e.Write(b)
	return err
}

func (e *encoder) encodeBool(b bool) error {
	octet := byte(0x00)
	if b {
		octet = 0x01
	}
	_, err := e.Write([]byte{octet})
	return err
}

func (e *encoder) writePointerMarker(isNil bool) error {
	marker := byte(0x01)
	if isNil {
		marker = 0x00
	}
	_, err := e.Write([]byte{marker})
	return err
}

func (e *encoder) encodeFixed(x uint64, l uint) error {
	_, err := e.Write(putFixed(x, l))
	return err
}

func (e *encoder) encodeNatural(x uint64) error {
	_, err := e.Write(putNatural(x))
	return err
}
