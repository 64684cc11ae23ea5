package docstore

import (
	"reflect"
	"time"
	"unsafe"

	jsoniter "github.com/json-iterator/go"
	"github.com/modern-go/reflect2"
)

// Documents encode time.Time as integer microseconds since the Unix epoch so
// that range filters and ORDER BY on timestamps compare numerically inside the
// SQL engine. RFC 3339 strings are still accepted on decode. The override is
// an extension of this codec only; other jsoniter configs in the process keep
// the standard time encoding.
var codec = newCodec()

func newCodec() jsoniter.API {
	api := jsoniter.Config{
		EscapeHTML:             false,
		SortMapKeys:            true,
		ValidateJsonRawMessage: true,
	}.Froze()
	api.RegisterExtension(&timeExtension{})
	return api
}

var timeType = reflect.TypeOf(time.Time{})

type timeExtension struct {
	jsoniter.DummyExtension
}

func (timeExtension) CreateEncoder(typ reflect2.Type) jsoniter.ValEncoder {
	if typ.Type1() == timeType {
		return timeCodec{}
	}
	return nil
}

func (timeExtension) CreateDecoder(typ reflect2.Type) jsoniter.ValDecoder {
	if typ.Type1() == timeType {
		return timeCodec{}
	}
	return nil
}

type timeCodec struct{}

func (timeCodec) IsEmpty(unsafe.Pointer) bool { return false }

func (timeCodec) Encode(ptr unsafe.Pointer, stream *jsoniter.Stream) { encodeTime(ptr, stream) }

func (timeCodec) Decode(ptr unsafe.Pointer, iter *jsoniter.Iterator) { decodeTime(ptr, iter) }

func encodeTime(ptr unsafe.Pointer, stream *jsoniter.Stream) {
	stream.WriteInt64((*time.Time)(ptr).UnixMicro())
}

func decodeTime(ptr unsafe.Pointer, iter *jsoniter.Iterator) {
	t := (*time.Time)(ptr)
	switch iter.WhatIsNext() {
	case jsoniter.NumberValue:
		*t = time.UnixMicro(iter.ReadInt64()).UTC()
	case jsoniter.StringValue:
		s := iter.ReadString()
		parsed, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			iter.ReportError("decode time", err.Error())
			return
		}
		*t = parsed.UTC()
	case jsoniter.NilValue:
		iter.ReadNil()
		*t = time.Time{}
	default:
		iter.Skip()
		iter.ReportError("decode time", "expected epoch microseconds or RFC 3339 string")
	}
}

// Marshal encodes v in the document wire format.
func Marshal(v any) ([]byte, error) { return codec.Marshal(v) }

// Unmarshal decodes a document body into v.
func Unmarshal(data []byte, v any) error { return codec.Unmarshal(data, v) }

// TimeValue converts t to the value stored for it in documents, for use in
// query parameters.
func TimeValue(t time.Time) int64 { return t.UnixMicro() }
