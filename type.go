package resp3

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidAggregateTypeLength is returned when reading or writing an aggregate type header with a length < 0.
	ErrInvalidAggregateTypeLength = errors.New("invalid aggregate type length")

	// ErrInvalidBigNumber is returned when decoding an invalid big number.
	ErrInvalidBigNumber = errors.New("invalid big number")

	// ErrInvalidBlobLength is returned when reading or writing a blob string with an invalid length.
	ErrInvalidBlobLength = errors.New("blob string length must be >= 0")

	// ErrInvalidBoolean is returned when decoding an invalid boolean.
	ErrInvalidBoolean = errors.New("invalid boolean")

	// ErrInvalidDouble is returned when decoding an invalid double.
	ErrInvalidDouble = errors.New("invalid double")

	// ErrInvalidNumber is returned when decoding an invalid number.
	ErrInvalidNumber = errors.New("invalid number")

	// ErrInvalidSimpleValue is returned when decoding or encoding a simple error/string that contains either \r or \n.
	ErrInvalidSimpleValue = errors.New("simple errors/strings must not contain \r or \n or both")

	// ErrInvalidType is returned when decoding an unknown type.
	ErrInvalidType = errors.New("invalid type")

	// ErrInvalidVerbatimStringPrefix is returned when decoding or encoding a verbatim string prefix that has more or
	// less than 3 characters.
	ErrInvalidVerbatimStringPrefix = errors.New("invalid verbatim string prefix")

	// ErrUnexpectedEOL is returned when reading a line that does not end in \r\n.
	ErrUnexpectedEOL = errors.New("unexpected EOL")

	// ErrUnexpectedType is returned by Lexer when encountering an unknown type.
	ErrUnexpectedType = errors.New("encountered unexpected RESP type")

	// ErrIncomplete is returned by Lexer.Next when the buffer ends mid-token. The caller must Feed more
	// bytes and call Next again with the same Lexer; no bytes of the partial value are consumed when
	// ErrIncomplete is returned.
	ErrIncomplete = errors.New("incomplete value")

	// ErrReadLimit is returned by Lexer.Next when a value (or the unresolved buffer) would exceed MaxSize.
	ErrReadLimit = errors.New("value exceeds configured read limit")

	// ErrUnexpectedSentinel is returned when a stream terminator (end marker or zero-length blob chunk)
	// is encountered outside of a streamed aggregate or streamed string.
	ErrUnexpectedSentinel = errors.New("unexpected stream terminator")
)

// Type is an enum of the known RESP types with the values of the constants being the single-byte prefix characters.
type Type byte

const (
	// TypeInvalid is used to denote invalid RESP types.
	TypeInvalid Type = 0
	// TypeArray is the RESP protocol type for arrays.
	TypeArray Type = '*'
	// TypeAttribute is the RESP protocol type for attributes.
	TypeAttribute Type = '|'
	// TypeBigNumber is the RESP protocol type for big numbers.
	TypeBigNumber Type = '('
	// TypeBoolean is the RESP protocol type for booleans.
	TypeBoolean Type = '#'
	// TypeDouble is the RESP protocol type for double.
	TypeDouble Type = ','
	// TypeBlobChunk is the RESP protocol type for blob chunks.
	TypeBlobChunk Type = ';'
	// TypeBlobError is the RESP protocol type for blob errors.
	TypeBlobError Type = '!'
	// TypeBlobString is the RESP protocol type for blob strings.
	TypeBlobString Type = '$'
	// TypeEnd is the RESP protocol type for stream ends.
	TypeEnd Type = '.'
	// TypeMap is the RESP protocol type for maps.
	TypeMap Type = '%'
	// TypeNull is the RESP protocol type for null.
	TypeNull Type = '_'
	// TypeNumber is the RESP protocol type for numbers.
	TypeNumber Type = ':'
	// TypePush is the RESP protocol type for push data.
	TypePush Type = '>'
	// TypeSet is the RESP protocol type for sets.
	TypeSet Type = '~'
	// TypeSimpleError is the RESP protocol type for simple errors.
	TypeSimpleError Type = '-'
	// TypeSimpleString is the RESP protocol type for simple strings.
	TypeSimpleString Type = '+'
	// TypeVerbatimString is the RESP protocol type for verbatim strings.
	TypeVerbatimString Type = '='
)

var types = [255]Type{
	TypeArray:          TypeArray,
	TypeAttribute:      TypeAttribute,
	TypeBigNumber:      TypeBigNumber,
	TypeBoolean:        TypeBoolean,
	TypeDouble:         TypeDouble,
	TypeBlobError:      TypeBlobError,
	TypeBlobString:     TypeBlobString,
	TypeBlobChunk:      TypeBlobChunk,
	TypeEnd:            TypeEnd,
	TypeMap:            TypeMap,
	TypeNumber:         TypeNumber,
	TypeNull:           TypeNull,
	TypePush:           TypePush,
	TypeSet:            TypeSet,
	TypeSimpleError:    TypeSimpleError,
	TypeSimpleString:   TypeSimpleString,
	TypeVerbatimString: TypeVerbatimString,
}

// String implements the fmt.Stringer interface.
func (t Type) String() string {
	return string(t)
}

// IsAggregate reports whether t is one of the nestable aggregate types (array, attribute, map, push, set).
func (t Type) IsAggregate() bool {
	switch t {
	case TypeArray, TypeAttribute, TypeMap, TypePush, TypeSet:
		return true
	default:
		return false
	}
}

// ElementMultiplicity returns the factor applied to an aggregate's declared count to get its number of
// expanded children: 2 for map and attribute (key/value pairs), 1 for everything else.
func (t Type) ElementMultiplicity() int64 {
	if t == TypeMap || t == TypeAttribute {
		return 2
	}
	return 1
}

var _ fmt.Stringer = TypeInvalid
