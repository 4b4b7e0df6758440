// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package pointer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/todos/pkg/pointer"
)

/*
TestPointer covers nil and non-nil dereferencing.
*/
func TestPointer(t *testing.T) {
	title := pointer.To("Buy milk")
	var missing *bool

	assert.Equal(t, "Buy milk", pointer.Val(title))
	assert.False(t, pointer.Val(missing))
	assert.True(t, pointer.Fallback(missing, true))
	assert.Equal(t, "Buy milk", pointer.Fallback(title, "other"))
}
