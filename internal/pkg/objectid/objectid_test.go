package objectid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNew_Format(t *testing.T) {
	id := New()
	assert.Len(t, string(id), 24)
	assert.True(t, IsValid(string(id)))
}

func TestNew_Unique(t *testing.T) {
	seen := make(map[ID]struct{})
	for i := 0; i < 1000; i++ {
		id := New()
		_, dup := seen[id]
		assert.False(t, dup)
		seen[id] = struct{}{}
	}
}

func TestIsValid(t *testing.T) {
	assert.True(t, IsValid("507f1f77bcf86cd799439011"))
	assert.True(t, IsValid("507F1F77BCF86CD799439011"))
	assert.False(t, IsValid(""))
	assert.False(t, IsValid("507f1f77bcf86cd79943901"))    // 23 символа
	assert.False(t, IsValid("507f1f77bcf86cd7994390111"))  // 25 символов
	assert.False(t, IsValid("507f1f77bcf86cd79943901z"))   // не hex
	assert.False(t, IsValid("not-an-object-id-at-all!"))
}

func TestParse(t *testing.T) {
	id, err := Parse("507f1f77bcf86cd799439011")
	assert.NoError(t, err)
	assert.Equal(t, ID("507f1f77bcf86cd799439011"), id)

	_, err = Parse("bad")
	assert.Error(t, err)
}

func TestTimestamp(t *testing.T) {
	before := time.Now().Add(-time.Second)
	id := New()
	after := time.Now().Add(time.Second)

	ts := id.Timestamp()
	assert.True(t, ts.After(before) && ts.Before(after))
}
