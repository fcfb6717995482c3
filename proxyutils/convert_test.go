package proxyutils

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValueKind(t *testing.T) {
	valueTypes := []any{
		true, int(0), int8(0), int16(0), int32(0), int64(0),
		uint(0), uint8(0), uint16(0), uint32(0), uint64(0), uintptr(0),
		float32(0), float64(0), complex64(0), complex128(0),
	}
	for _, v := range valueTypes {
		assert.True(t, IsValueKind(reflect.TypeOf(v)), "expected %T to be a value kind", v)
	}

	referenceTypes := []any{
		"", []byte{}, map[string]int{}, struct{}{}, &struct{}{},
	}
	for _, v := range referenceTypes {
		assert.False(t, IsValueKind(reflect.TypeOf(v)), "expected %T not to be a value kind", v)
	}
}

func TestBoxArgs(t *testing.T) {
	boxed := BoxArgs([]reflect.Value{
		reflect.ValueOf("hello"),
		reflect.ValueOf(42),
		{},
	})
	require.Len(t, boxed, 3)
	assert.Equal(t, "hello", boxed[0])
	assert.Equal(t, 42, boxed[1])
	assert.Nil(t, boxed[2])
}

func TestUnboxValue(t *testing.T) {
	t.Run("ExactType", func(t *testing.T) {
		rv, err := UnboxValue("hello", reflect.TypeOf(""))
		require.NoError(t, err)
		assert.Equal(t, "hello", rv.Interface())
	})

	t.Run("AbsentValueKind", func(t *testing.T) {
		// absent boxed results of value kinds fall back to the zero value
		rv, err := UnboxValue(nil, reflect.TypeOf(int64(0)))
		require.NoError(t, err)
		assert.Equal(t, int64(0), rv.Interface())

		rv, err = UnboxValue(nil, reflect.TypeOf(false))
		require.NoError(t, err)
		assert.Equal(t, false, rv.Interface())
	})

	t.Run("AbsentReferenceType", func(t *testing.T) {
		rv, err := UnboxValue(nil, reflect.TypeOf(""))
		require.NoError(t, err)
		assert.Equal(t, "", rv.Interface())

		rv, err = UnboxValue(nil, reflect.TypeOf([]string{}))
		require.NoError(t, err)
		assert.True(t, rv.IsNil())
	})

	t.Run("NumericConversion", func(t *testing.T) {
		rv, err := UnboxValue(int(7), reflect.TypeOf(int64(0)))
		require.NoError(t, err)
		assert.Equal(t, int64(7), rv.Interface())

		rv, err = UnboxValue(float64(2.5), reflect.TypeOf(float32(0)))
		require.NoError(t, err)
		assert.Equal(t, float32(2.5), rv.Interface())
	})

	t.Run("ValueKindMismatch", func(t *testing.T) {
		_, err := UnboxValue("not a number", reflect.TypeOf(int(0)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot unbox")
	})

	t.Run("AssignableInterface", func(t *testing.T) {
		errType := reflect.TypeOf((*error)(nil)).Elem()
		rv, err := UnboxValue(assert.AnError, errType)
		require.NoError(t, err)
		assert.Equal(t, assert.AnError, rv.Interface())
	})

	t.Run("ReferenceTypeMismatch", func(t *testing.T) {
		_, err := UnboxValue(42, reflect.TypeOf(""))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot unbox")
	})
}
